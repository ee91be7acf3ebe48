package config

import (
	"os"
	"strings"
)

// Credentials is a supplier login pair resolved from the environment.
type Credentials struct {
	Login    string
	Password string
}

// LookupCredentials resolves credentials for a supplier from the process
// environment. Names are derived from the supplier name: INGEST_<NAME>_LOGIN
// and INGEST_<NAME>_PASSWORD, falling back to <NAME>_LOGIN/<NAME>_PASSWORD
// and finally the shared INGEST_LOGIN/INGEST_PASSWORD pair. Missing
// credentials are not an error; the caller degrades instead.
func LookupCredentials(supplier string) (Credentials, bool) {
	key := envKey(supplier)
	for _, prefix := range []string{"INGEST_" + key, key, "INGEST"} {
		login, okLogin := os.LookupEnv(prefix + "_LOGIN")
		pass, okPass := os.LookupEnv(prefix + "_PASSWORD")
		if okLogin && okPass && login != "" && pass != "" {
			return Credentials{Login: login, Password: pass}, true
		}
	}
	return Credentials{}, false
}

func envKey(supplier string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(supplier) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
