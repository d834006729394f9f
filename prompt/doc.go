// Package prompt assembles the system and human prompts for the planning,
// analysis and decision steps. Builders are pure functions of their inputs so
// the same record snapshot always yields the same prompt text.
//
// Two operating modes exist: "authoritative", when significant organizational
// context is available and must override general knowledge, and "fallback",
// when only general reasoning and historical evidence can be used.
package prompt
