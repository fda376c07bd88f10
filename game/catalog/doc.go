// Package catalog provides read-only access to the card asset catalog.
//
// The catalog is an external collaborator of the game engine: pool
// generation only needs a snapshot of the available card faces and never
// mutates the catalog. Two implementations are provided: a static
// in-memory catalog (tests, fixtures) and a SQLite-backed catalog that is
// seeded from card manifest files.
//
// Manifests:
//
// A manifest is a JSON file listing card assets (identifier, filename,
// image URL, dimensions). Manifests are the import format for the seed
// command and replace the original deployment's remote asset sync.
package catalog
