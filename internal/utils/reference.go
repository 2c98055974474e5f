package utils

import "crypto/rand"

// referenceAlphabet deliberately sticks to uppercase letters and digits so
// references survive being read over the phone or typed into the support
// search box (which uppercases its input anyway).
const referenceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// ReferenceLength is the fixed length of a booking reference.  36^8 values
// make collisions negligible at expected volume; the bookings table still
// carries a unique index and callers retry on a duplicate-key error.
const ReferenceLength = 8

// NewBookingReference returns a random, human-shareable booking code such
// as "Q4ZR81KM".  It draws from crypto/rand; modulo bias over a 36-letter
// alphabet is irrelevant for this purpose.
func NewBookingReference() (string, error) {
    buf := make([]byte, ReferenceLength)
    if _, err := rand.Read(buf); err != nil {
        return "", err
    }
    for i, b := range buf {
        buf[i] = referenceAlphabet[int(b)%len(referenceAlphabet)]
    }
    return string(buf), nil
}
