package config

type SecurityLevel int

const (
	SecurityPublic SecurityLevel = iota // No authentication
	SecurityAPIKey                      // Anonymous key only
	SecurityAccess                      // Access token (and anonymous key when configured)
)

const (
	EnvBackendURL     = "PORTAL_BACKEND_URL"
	EnvBackendAnonKey = "PORTAL_BACKEND_ANON_KEY"
)

// RouteSecurityConfig maps mux route names to their required security level
var RouteSecurityConfig = map[string]SecurityLevel{
	"healthz": SecurityPublic,
	"metrics": SecurityPublic,

	"me":        SecurityAccess,
	"dashboard": SecurityAccess,

	"applications.list":          SecurityAccess,
	"applications.create":        SecurityAccess,
	"applications.update_status": SecurityAccess,
	"applications.assign":        SecurityAccess,

	"comments.list":   SecurityAccess,
	"comments.create": SecurityAccess,

	"profiles.list":        SecurityAccess,
	"profiles.reviewers":   SecurityAccess,
	"profiles.update_role": SecurityAccess,

	"changes":             SecurityAccess,
	"applications.stream": SecurityAccess,
}

// GetSecurityLevel returns the security level for a given route name
func GetSecurityLevel(route string) SecurityLevel {
	if level, exists := RouteSecurityConfig[route]; exists {
		return level
	}
	// Default to highest security for unknown routes
	return SecurityAccess
}
