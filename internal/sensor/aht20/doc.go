// Package aht20 drives an AHT20 temperature/humidity sensor over a
// two-wire bus and yields validated sensor.Reading values.
//
// # Protocol
//
// Initialisation is a fixed sequence: power-up delay, soft reset (0xBA),
// reset delay, calibrate (0xBE 0x08 0x00) and a bounded busy-poll of the
// status byte. A measurement is a trigger (0xAC 0x33 0x00), a settle delay,
// the same busy-poll, then one six-byte read:
//
//	byte 0     status (bit 7 busy, bit 3 calibrated)
//	byte 1..3  humidity, 20 bits: b1<<12 | b2<<4 | b3>>4
//	byte 3..5  temperature, 20 bits: (b3&0x0F)<<16 | b4<<8 | b5
//
// Engineering units follow the datasheet:
//
//	RH [%]  = raw / 2^20 * 100   (clamped to 0..100)
//	T  [°C] = raw / 2^20 * 200 - 50
//
// # State
//
// A Driver moves Uninitialized → Ready on a successful Initialize and back
// to Uninitialized on Shutdown. A failed Initialize or a structurally
// impossible frame leaves it Faulted until Initialize succeeds again.
//
// The driver never retries beyond the busy-poll; retrying failed cycles is
// the caller's job. A Driver is not safe for concurrent use.
package aht20
