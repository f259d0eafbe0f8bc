// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

// Package schema provides the shared envelope types for pipa pipeline documents
package schema

// Versioned is a tiny struct used to grab the schema version for a pipeline
type Versioned struct {
	// SchemaVersion is the pipeline schema that this pipeline follows
	SchemaVersion string `json:"schema-version"`
}
