package config

import (
	"os"
	"strconv"
)

// ApplyEnv overlays environment variables onto a Core config, following the
// precedence documented in spec.md §6: env vars win over file config so an
// operator can adjust a container's behavior without rebuilding its config
// file.
func ApplyEnv(c *Core) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}

	if v := os.Getenv("PORT"); v != "" {
		c.HTTPAddr = ":" + v
	}

	if v := firstNonEmpty(os.Getenv("SNMP_TRAP_PORT"), os.Getenv("TRAP_PORT")); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.TrapPort = p
		}
	}

	if v := os.Getenv("SNMP_TRAP_FALLBACK_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.TrapFallbackPort = p
		}
	}

	c.TrapRequirePrivileged = envBool("SNMP_TRAP_REQUIRE_PRIVILEGED", true)
	c.TrapAutoFallback = envBool("SNMP_TRAP_AUTO_FALLBACK", false)
}

func envBool(name string, def bool) bool {
	v, ok := os.LookupEnv(name)
	if !ok {
		return def
	}

	return v == "true"
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}

	return ""
}
