// Package rate provides Redis-backed fixed-window counters for login and
// refresh throttling.
package rate
