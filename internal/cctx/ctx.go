package cctx

type ContextKey string

var (
	ClientIP   ContextKey = "pl:ip"
	Passphrase ContextKey = "pl:room"
	Role       ContextKey = "pl:role"
)
