package config

import "fmt"

// Server is the configuration of the HTTP listener.
type Server struct {
	// Address is the address to listen on (host:port).
	Address string `yaml:"address"`

	// CertFile and KeyFile enable TLS when both are set.
	CertFile string `yaml:"certFile"`
	KeyFile  string `yaml:"keyFile"`
}

// Validate validates the configuration.
func (c Server) Validate() error {
	if (c.CertFile == "") != (c.KeyFile == "") {
		return fmt.Errorf("server: certFile and keyFile must be set together")
	}

	return nil
}
