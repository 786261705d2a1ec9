package config

import (
	"os"
	"strings"
)

type Cors struct{}

var _ CorsConfig = Cors{}

type AllowedOrigins map[string]struct{}
type nullValue = struct{}

func (a AllowedOrigins) IsAllowedOrigin(origin string) bool {
	_, ok := a[origin]
	return ok
}

func (a AllowedOrigins) String() string {
	var origins []string
	for k := range a {
		origins = append(origins, k)
	}
	return strings.Join(origins, ", ")
}

// GetAllowedOrigins returns the origins allowed to call the API.
// Defaults to the local SPA dev server; override with ALLOWED_ORIGINS
// (comma separated).
func (Cors) GetAllowedOrigins() AllowedOrigins {
	origins := AllowedOrigins{"http://localhost:3000": nullValue{}}
	if env := os.Getenv("ALLOWED_ORIGINS"); env != "" {
		origins = AllowedOrigins{}
		for _, origin := range strings.Split(env, ",") {
			origins[strings.TrimSpace(origin)] = nullValue{}
		}
	}
	return origins
}

func (Cors) GetAllowedMethods() string {
	return "GET, POST, PUT, PATCH, DELETE"
}

func (Cors) GetAllowedHeaders() string {
	return "Content-Type, Authorization"
}
