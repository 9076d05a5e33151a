// Package engine contains the arena game loop and simulation logic.
//
// ARCHITECTURAL RULE: The world has exactly one owner. Network handlers
// never mutate it; they Submit commands which the tick drains in arrival
// order before anything else moves.
package engine
