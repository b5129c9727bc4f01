// Package flags manages command-line flags and environment variables for wud-triggers.
// It configures logging, batch scheduling, the metrics listener and the container state feed
// via Cobra and Viper.
//
// Key components:
//   - RegisterSystemFlags: Adds operational control flags.
//   - ProcessFlagAliases: Applies the --debug and --trace shortcuts.
//   - SetupLogging: Configures logrus based on flags.
//   - ReadFlags: Collects the operational settings used by the root command.
//
// Usage example:
//
//	cmd := &cobra.Command{}
//	flags.SetDefaults()
//	flags.RegisterSystemFlags(cmd)
//	err := flags.SetupLogging(cmd.PersistentFlags())
//	if err != nil {
//	    logrus.WithError(err).Fatal("Logging setup failed")
//	}
//
// Every flag falls back to a WUD_ prefixed environment variable bound through Viper.
// Trigger instances are configured separately, see the config package.
package flags
