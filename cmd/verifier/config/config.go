package config

import (
	"os"
	"time"

	"github.com/koding/multiconfig"
)

// Config defines verifier daemon configuration
type Config struct {
	// judging
	TasksDir         string        `flagUsage:"specifies the directory containing one sub directory per task" default:"tasks"`
	ScratchDir       string        `flagUsage:"specifies the scratch directory, it is removed and recreated for every submission" default:"temp"`
	LanguageConf     string        `flagUsage:"specifies language configuration file (built-in languages when absent)" default:"languages.yaml"`
	CompileTimeLimit time.Duration `flagUsage:"specifies the wall clock limit of the compiler" default:"30s"`
	PollInterval     time.Duration `flagUsage:"specifies the memory / time check interval of running programs" default:"1ms"`
	QueueSize        int           `flagUsage:"specifies max number of waiting submissions" default:"512"`

	// apparmor
	ProfileDir string `flagUsage:"specifies apparmor profile directory" default:"/etc/apparmor.d"`
	EnforceCmd string `flagUsage:"specifies the command enforcing a profile" default:"aa-enforce"`
	DisableCmd string `flagUsage:"specifies the command disabling a profile" default:"aa-disable"`

	// server config
	HTTPAddr      string `flagUsage:"specifies the http binding address" default:":5060"`
	MonitorAddr   string `flagUsage:"specifies the metrics binding address" default:":5062"`
	AuthToken     string `flagUsage:"bearer token auth for REST"`
	EnableDebug   bool   `flagUsage:"enable debug endpoint"`
	EnableMetrics bool   `flagUsage:"enable promethus metrics endpoint"`

	// logger config
	Release bool `flagUsage:"release level of logs"`
	Silent  bool `flagUsage:"do not print logs"`

	// show version and exit
	Version bool `flagUsage:"show version and exit"`
}

// Load loads config from flag & environment variables
func (c *Config) Load() error {
	cl := multiconfig.MultiLoader(
		&multiconfig.TagLoader{},
		&multiconfig.EnvironmentLoader{
			Prefix:    "VF",
			CamelCase: true,
		},
		&multiconfig.FlagLoader{
			CamelCase: true,
			EnvPrefix: "VF",
		},
	)
	if os.Getpid() == 1 {
		c.Release = true
	}
	return cl.Load(c)
}
