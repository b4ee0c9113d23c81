// Package config loads runtime settings with viper.
//
// Settings come from defaults, then a config file (TOML, YAML or any format
// viper reads), then environment variables prefixed with SCRIPTRT_ in which
// dots become underscores:
//
//	[scheduler]
//	hooks = "wit"            # SCRIPTRT_SCHEDULER_HOOKS
//	incremental_gc = false
//
//	[engine]
//	max_contexts = 64        # SCRIPTRT_ENGINE_MAX_CONTEXTS
//
//	[log]
//	level = "debug"
//
// The Options helpers turn a Config into options for the scheduler,
// debugger and engine packages.
package config
