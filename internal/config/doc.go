// Package config provides configuration management for libro-downloader.
//
// Settings are layered, lowest precedence first:
//   - DefaultSettings()
//   - an optional YAML file
//   - LIBRODL_* environment variables (LIBRODL_DOWNLOAD_OUTPUT_DIR, ...)
//   - command-line flags bound with Loader.BindFlag
//
// # Loading
//
//	loader := config.NewLoader()
//	loader.BindFlag("download.format", cmd.Flags().Lookup("format"))
//	settings, err := loader.Load(configPath)
//
// # Example file
//
//	download:
//	  output_dir: ~/Audiobooks
//	  format: mp3
//	finish:
//	  tags: true
//	  playlist: true
//	cookie:
//	  browsers: [firefox]
package config
