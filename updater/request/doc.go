// Package request reads the description of a dependency update merge request
// from a YAML or JSON file: branch and commit settings, merge request
// metadata, and the change set. Text fields may hold {{NAME}} placeholders,
// filled from the file's vars and from workspace status files.
package request
