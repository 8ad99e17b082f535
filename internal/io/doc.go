// Package io implements the channel registry: the table of configured
// measurement channels, local hardware reads with linear calibration, and
// the cache of values received from remote devices over UDP.
//
// The registry is loaded once from a JSON channel document and rebuilt
// wholesale on reload. Local channels (built-in ADC, ADS1115) are read
// synchronously through the Hardware interface; udp-in channels return the
// last sample pushed via UpdateRemoteValue.
//
// Error Policy:
//   - Unknown channel ids read as 0, never as an error.
//   - A missing or malformed channel document yields an empty table.
//   - Channels beyond the fixed table capacity are dropped, first-come wins.
//
// Thread Safety: all exported methods are safe for concurrent use.
package io
