package qr

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"

	"github.com/skip2/go-qrcode"

	"storefront/internal/models"
)

// Generator produces the tracking QR codes embedded in order
// confirmations. The payload is encrypted so a scanned code cannot be
// forged into another order's reference.
type Generator struct {
	secret []byte
}

func NewGenerator(secret string) *Generator {
	hashed := sha256.Sum256([]byte(secret)) // normalize to 32 bytes
	return &Generator{secret: hashed[:]}
}

type trackingPayload struct {
	OrderID string `json:"order_id"`
	Number  string `json:"number"`
	BuyerID string `json:"buyer_id"`
}

// GenerateTrackingQR encodes the order's tracking reference into a
// 256x256 PNG.
func (g *Generator) GenerateTrackingQR(order *models.Order) ([]byte, error) {
	data, err := json.Marshal(trackingPayload{
		OrderID: order.OrderID,
		Number:  order.Number,
		BuyerID: order.BuyerID,
	})
	if err != nil {
		return nil, err
	}

	encrypted, err := encryptAES(data, g.secret)
	if err != nil {
		return nil, err
	}

	return qrcode.Encode(encrypted, qrcode.Medium, 256)
}

func encryptAES(data []byte, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	ciphertext := make([]byte, aes.BlockSize+len(data))
	iv := ciphertext[:aes.BlockSize]

	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", err
	}

	stream := cipher.NewCFBEncrypter(block, iv)
	stream.XORKeyStream(ciphertext[aes.BlockSize:], data)

	return base64.URLEncoding.EncodeToString(ciphertext), nil
}
