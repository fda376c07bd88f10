// Package service provides the business logic layer for the memory game.
//
// The service package implements:
//   - Game creation (catalog snapshot, pool generation, persistence)
//   - Progression submission through the session coordinator
//   - Restart, end, and read-model queries (continue, current games)
//
// Core Interfaces:
//
// GameService is the main service interface consumed by the transport
// layer. It depends on the catalog collaborator for card faces, the store
// for durability, and the session coordinator for per-session
// serialization of every mutating operation.
//
// Architecture:
//
// The service layer sits between the HTTP API and the game engine. Pool
// generation and session creation are independent and run fully in
// parallel; progression, restart, and end are funneled through the
// coordinator so each session sees one transition at a time.
package service
