// Package config handles loading and validating the climate agent configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Sensitive values (broker password, InfluxDB token) should be set via
//     environment variables
//   - The config file should have restricted permissions (0600)
//
// Configuration is loaded once at startup. There is no reload while running.
//
// Usage:
//
//	cfg, err := config.Load("configs/climate.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Device.ID, cfg.SampleInterval())
package config
