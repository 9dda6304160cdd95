package domain

import (
	interfaces "yumsg/internal/domain/interfaces"
	types "yumsg/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	KEMAlgorithm        = types.KEMAlgorithm
	SymmetricAlgorithm  = types.SymmetricAlgorithm
	SignatureAlgorithm  = types.SignatureAlgorithm
	AlgorithmTriple     = types.AlgorithmTriple
	AlgorithmDescriptor = types.AlgorithmDescriptor
	ChatKeyRing         = types.ChatKeyRing
	PeerCryptoInfo      = types.PeerCryptoInfo
	Chat                = types.Chat
	Status              = types.Status
	MessageType         = types.MessageType
	HandshakeMessage    = types.HandshakeMessage
	PendingSecret       = types.PendingSecret
)

// Status value aliases.
const (
	StatusInitializing = types.StatusInitializing
	StatusEstablished  = types.StatusEstablished
	StatusFailed       = types.StatusFailed
)

// Message type aliases.
const (
	MsgChatInitRequest   = types.MsgChatInitRequest
	MsgChatInitResponse  = types.MsgChatInitResponse
	MsgChatInitConfirm   = types.MsgChatInitConfirm
	MsgChatInitSignature = types.MsgChatInitSignature
	MsgChatDelete        = types.MsgChatDelete
)

// Algorithm identifier aliases.
const (
	KEMKyber512          = types.KEMKyber512
	KEMKyber768          = types.KEMKyber768
	KEMKyber1024         = types.KEMKyber1024
	KEMCodeBasedMcEliece = types.KEMCodeBasedMcEliece

	SymmetricAES256GCM        = types.SymmetricAES256GCM
	SymmetricChaCha20Poly1305 = types.SymmetricChaCha20Poly1305

	SignatureDilithium2 = types.SignatureDilithium2
	SignatureDilithium3 = types.SignatureDilithium3
	SignatureDilithium5 = types.SignatureDilithium5
	SignatureFalcon512  = types.SignatureFalcon512
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	ChatStore          = interfaces.ChatStore
	PendingSecretTable = interfaces.PendingSecretTable
	Transport          = interfaces.Transport
	UIEventSink        = interfaces.UIEventSink
	AlgorithmPolicy    = interfaces.AlgorithmPolicy
)
