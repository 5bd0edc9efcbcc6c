// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data to the local filesystem.
//
// Adapters:
//   - ConfigStore: TOML-based configuration storage with environment overrides
//   - PromptStore: User-editable prompt templates with embedded defaults
//   - PromptWatcher: Reloads a PromptStore when prompt files change
package file
