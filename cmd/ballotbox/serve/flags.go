package serve

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/vocdoni/ballotbox/log"
	"github.com/vocdoni/ballotbox/verifier"
)

const (
	HostKey          = "host"
	PortKey          = "port"
	DataDirKey       = "datadir"
	LogLevelKey      = "log.level"
	LogOutputKey     = "log.output"
	VerifierKey      = "verifier"
	VerifierVKeyKey  = "verifier.vkey"
	VerifierHashKey  = "verifier.vkey.hash"
	VerifierCacheKey = "verifier.cache"

	// EnvPrefix prefixes the environment variables read for the flags that
	// are not set in the command line, e.g. BALLOTBOX_LOG_LEVEL.
	EnvPrefix = "BALLOTBOX_"
)

func AddFlags(flags *pflag.FlagSet) {
	flags.String(HostKey, "0.0.0.0", "API host to listen on")
	flags.Int(PortKey, 9090, "API port to listen on")
	flags.String(DataDirKey, "", "directory of the ledger database, in memory if empty")
	flags.String(LogLevelKey, log.LogLevelInfo, "log level (debug, info, warn, error)")
	flags.String(LogOutputKey, "stdout", "log output (stdout, stderr or a file path)")
	flags.String(VerifierKey, verifier.NameAcceptAll,
		"proof verifier of anonymous elections (acceptall, groth16, circom, rapidsnark)")
	flags.String(VerifierVKeyKey, "", "verification key of the proof verifier, a file path or an http(s) URL")
	flags.String(VerifierHashKey, "", "hex sha256 of the verification key, required for URLs")
	flags.Int(VerifierCacheKey, 1024, "number of cached proof verifications, 0 disables the cache")
}

type Config struct {
	Host          string
	Port          int
	DataDir       string
	LogLevel      string
	LogOutput     string
	Verifier      string
	VerifierVKey  *verifier.Artifact
	VerifierCache int
}

// EnvName returns the environment variable read for the flag key.
func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
}

// applyEnv sets the flags not given in the command line from the
// environment.
func applyEnv(flags *pflag.FlagSet) error {
	var err error
	flags.VisitAll(func(f *pflag.Flag) {
		if err != nil || f.Changed {
			return
		}
		if v, ok := os.LookupEnv(EnvName(f.Name)); ok {
			if setErr := flags.Set(f.Name, v); setErr != nil {
				err = fmt.Errorf("invalid %s: %w", EnvName(f.Name), setErr)
			}
		}
	})
	return err
}

func ParseFlags(flags *pflag.FlagSet, args []string) (*Config, error) {
	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	if err := applyEnv(flags); err != nil {
		return nil, err
	}

	host, err := flags.GetString(HostKey)
	if err != nil {
		return nil, err
	}

	port, err := flags.GetInt(PortKey)
	if err != nil {
		return nil, err
	}
	if port < 0 || port > 65535 {
		return nil, fmt.Errorf("invalid port %d", port)
	}

	dataDir, err := flags.GetString(DataDirKey)
	if err != nil {
		return nil, err
	}

	logLevel, err := flags.GetString(LogLevelKey)
	if err != nil {
		return nil, err
	}
	switch logLevel {
	case log.LogLevelDebug, log.LogLevelInfo, log.LogLevelWarn, log.LogLevelError:
	default:
		return nil, fmt.Errorf("invalid log level %q", logLevel)
	}

	logOutput, err := flags.GetString(LogOutputKey)
	if err != nil {
		return nil, err
	}

	verifierName, err := flags.GetString(VerifierKey)
	if err != nil {
		return nil, err
	}

	vkeySource, err := flags.GetString(VerifierVKeyKey)
	if err != nil {
		return nil, err
	}
	vkeyHash, err := flags.GetString(VerifierHashKey)
	if err != nil {
		return nil, err
	}
	var vkey *verifier.Artifact
	if vkeySource != "" {
		vkey = &verifier.Artifact{Source: vkeySource}
		if vkeyHash != "" {
			if vkey.Hash, err = hex.DecodeString(strings.TrimPrefix(vkeyHash, "0x")); err != nil {
				return nil, fmt.Errorf("invalid --%s: %w", VerifierHashKey, err)
			}
		}
	} else if verifierName != verifier.NameAcceptAll {
		return nil, fmt.Errorf("verifier %q needs --%s", verifierName, VerifierVKeyKey)
	}

	cacheSize, err := flags.GetInt(VerifierCacheKey)
	if err != nil {
		return nil, err
	}

	return &Config{
		Host:          host,
		Port:          port,
		DataDir:       dataDir,
		LogLevel:      logLevel,
		LogOutput:     logOutput,
		Verifier:      verifierName,
		VerifierVKey:  vkey,
		VerifierCache: cacheSize,
	}, nil
}
