package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// GenerateOrderNumber creates the human-facing order reference shown to
// buyers and sellers. The internal order ID is a UUID; this is what gets
// printed on receipts and notifications.
func GenerateOrderNumber() string {
	timestamp := time.Now().Unix()
	randomNum, _ := rand.Int(rand.Reader, big.NewInt(999999))
	return fmt.Sprintf("ord_%d_%06d", timestamp, randomNum.Int64())
}

// GenerateCouponCode creates a short random uppercase coupon code.
func GenerateCouponCode() string {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	code := make([]byte, 8)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			// Fall back to a time-derived index if the RNG fails.
			n = big.NewInt(time.Now().UnixNano() % int64(len(alphabet)))
		}
		code[i] = alphabet[n.Int64()]
	}
	return string(code)
}
