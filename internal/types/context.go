package types

type contextKey string

// DBKey is the context key under which CLI commands carry their database
// handle between Before/Action/After hooks.
const DBKey contextKey = "db"
