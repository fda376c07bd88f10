// Package api exposes the memory game over a REST interface.
//
// Routes:
//
//	POST /api/games                  create a game for a set of players
//	GET  /api/games/{id}             resume-view of a game
//	POST /api/games/{id}/rounds      submit a flip-pair attempt
//	POST /api/games/{id}/restart     re-deal and clear history
//	POST /api/games/{id}/end         mark a game finished
//	GET  /api/players/{id}/games     list a player's open games
//	GET  /health                     liveness probe
//
// The server translates the service error taxonomy to HTTP statuses:
// validation failures map to 400, missing sessions to 404, progression on
// an ended session to 409, and a busy session to 503 with a Retry-After
// hint so clients back off and retry.
package api
