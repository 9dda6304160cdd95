// Package policy implements AlgorithmPolicy for the two
// deployment modes: P2P, where every handshake message carries its own
// crypto_algorithms descriptor and a CHAT_INIT_REQUEST's descriptor is
// taken as authoritative for the chat it opens, and server-mediated,
// where a single organization-wide triple is cached at startup and any
// inbound descriptor is ignored.
package policy

import (
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	domaintypes "yumsg/internal/domain/types"
)

// Config is the viper-unmarshaled shape of a policy's crypto
// preferences. Mode selects which AlgorithmPolicy implementation the
// caller should construct; Asymmetric/Symmetric/Signature name the
// default triple.
type Config struct {
	Mode       string `mapstructure:"mode"`
	Asymmetric string `mapstructure:"asymmetric"`
	Symmetric  string `mapstructure:"symmetric"`
	Signature  string `mapstructure:"signature"`
}

// ModeP2P and ModeServer are the recognized Config.Mode values.
const (
	ModeP2P    = "p2p"
	ModeServer = "server"
)

// Triple converts the loaded config into an AlgorithmTriple.
func (c Config) Triple() domaintypes.AlgorithmTriple {
	return domaintypes.AlgorithmTriple{
		KEM:       domaintypes.KEMAlgorithm(c.Asymmetric),
		Symmetric: domaintypes.SymmetricAlgorithm(c.Symmetric),
		Signature: domaintypes.SignatureAlgorithm(c.Signature),
	}
}

// LoadConfig reads policy configuration from configPath (if it exists),
// environment variables prefixed YUMSG_, and falls back to the
// package's built-in defaults. A missing config file is not an error —
// defaults plus environment overrides are enough to run.
func LoadConfig(configPath string) (Config, error) {
	v := viper.New()
	v.SetConfigName("policy")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix("YUMSG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setConfigDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setConfigDefaults(v *viper.Viper) {
	v.SetDefault("mode", ModeP2P)
	v.SetDefault("asymmetric", string(domaintypes.KEMKyber768))
	v.SetDefault("symmetric", string(domaintypes.SymmetricAES256GCM))
	v.SetDefault("signature", string(domaintypes.SignatureDilithium3))
}

// P2P is the AlgorithmPolicy for peer-to-peer mode: the local triple is
// carried on every outbound message, but an inbound CHAT_INIT_REQUEST's
// descriptor is authoritative for that chat regardless of what this
// node's own default happens to be — P2P has no central authority
// forcing two peers' defaults to agree. Consistency is only enforced
// later, by the initiator comparing the CHAT_INIT_RESPONSE it receives
// against the triple recorded at request time (see handshake.Engine.HandleInitResponse).
type P2P struct {
	local domaintypes.AlgorithmTriple
	log   *logrus.Logger
}

// NewP2P returns a P2P policy preferring local as the default triple.
func NewP2P(local domaintypes.AlgorithmTriple, log *logrus.Logger) *P2P {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &P2P{local: local, log: log}
}

func (p *P2P) LocalTriple() domaintypes.AlgorithmTriple {
	return p.local
}

func (p *P2P) CarriesAlgorithms() bool {
	return true
}

// ResolveRequestTriple takes a CHAT_INIT_REQUEST's algorithm descriptor
// as authoritative for the chat it opens: whatever the initiator named
// is what this node will use, even if it differs from the local
// default triple. A missing or structurally empty descriptor falls
// back to the local default rather than being rejected — a peer who
// omits crypto_algorithms is trusting us to pick. Whether the named
// algorithms are actually implemented is decided later, when the
// caller tries to generate a keypair for them (AlgorithmUnsupported),
// not here.
func (p *P2P) ResolveRequestTriple(descriptor *domaintypes.AlgorithmDescriptor) (domaintypes.AlgorithmTriple, error) {
	if descriptor == nil {
		return p.local, nil
	}
	inbound := descriptor.Triple()
	if inbound.Empty() {
		return p.local, nil
	}
	return inbound, nil
}

// ServerMediated is the AlgorithmPolicy for organization-mediated mode:
// a single cached triple governs every chat, loaded once at
// construction. Any crypto_algorithms field on an inbound message is
// ignored.
type ServerMediated struct {
	cached domaintypes.AlgorithmTriple
}

// NewServerMediated returns a ServerMediated policy fixed to orgTriple.
func NewServerMediated(orgTriple domaintypes.AlgorithmTriple) *ServerMediated {
	return &ServerMediated{cached: orgTriple}
}

func (s *ServerMediated) LocalTriple() domaintypes.AlgorithmTriple {
	return s.cached
}

func (s *ServerMediated) CarriesAlgorithms() bool {
	return false
}

func (s *ServerMediated) ResolveRequestTriple(_ *domaintypes.AlgorithmDescriptor) (domaintypes.AlgorithmTriple, error) {
	return s.cached, nil
}
