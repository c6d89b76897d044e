// Package config loads the provisioning configuration: the units to run,
// how to reach their hosts and where their execution records are kept.
//
// Configuration is read from a YAML file. Transport limits can be
// overridden from the environment, see [ApplyEnv].
package config
