package cmd

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var replacer = strings.NewReplacer(".", "_", "-", "_")

type argType interface {
	string | bool | int | time.Duration
}

type boundEnvVar[T argType] struct {
	Name, Description string
	Env, Short        *string
	Hidden            bool
	// Count registers an int as a repeatable counter flag (-vvv).
	Count bool
}

func (b boundEnvVar[T]) envName() string {
	if b.Env != nil {
		return *b.Env
	}
	return strings.ToUpper(replacer.Replace(b.Name))
}

// bindEnvMap registers a persistent flag per entry, defaulting to the current value of the
// bound variable. A set environment variable overrides that default; an explicit flag wins.
func bindEnvMap[T argType](cmd *cobra.Command, m map[*T]boundEnvVar[T]) {
	flags := cmd.PersistentFlags()
	for v, cfg := range m {
		env := cfg.envName()
		desc := fmt.Sprintf("[%s] %s", env, cfg.Description)
		short := ""
		if cfg.Short != nil {
			short = *cfg.Short
		}

		switch vt := any(v).(type) {
		case *string:
			flags.StringVarP(vt, cfg.Name, short, *vt, desc)
		case *bool:
			flags.BoolVarP(vt, cfg.Name, short, *vt, desc)
		case *int:
			if cfg.Count {
				def := *vt
				flags.CountVarP(vt, cfg.Name, short, desc)
				*vt = def
			} else {
				flags.IntVarP(vt, cfg.Name, short, *vt, desc)
			}
		case *time.Duration:
			flags.DurationVarP(vt, cfg.Name, short, *vt, desc)
		default:
			log.Panicf("command-args parsing error: unhandled default case for type %T", vt)
		}

		flag := flags.Lookup(cfg.Name)
		_ = viper.BindPFlag(cfg.Name, flag)
		_ = viper.BindEnv(cfg.Name, env)
		if _, found := os.LookupEnv(env); found {
			if err := flag.Value.Set(viper.GetString(cfg.Name)); err != nil {
				log.Panicf("invalid value for %s: %v", env, err)
			}
		}

		if cfg.Hidden {
			_ = flags.MarkHidden(cfg.Name)
		}
	}
}

func chainCommands(cmd *cobra.Command, args []string, fns ...func(*cobra.Command, []string) error) error {
	for _, fn := range fns {
		if err := fn(cmd, args); err != nil {
			return err
		}
	}
	return nil
}
