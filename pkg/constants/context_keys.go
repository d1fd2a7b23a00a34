package constants

type ContextKey string

const (
	TxKey     ContextKey = "tx"
	DBKey     ContextKey = "db"
	LoggerKey ContextKey = "logger"
)
