// ABOUTME: Level meter package
// ABOUTME: Turns captured output audio into level and spectrum readings
// Package meter turns chunks of captured output audio into level and
// spectrum readings for the terminal UI.
package meter
