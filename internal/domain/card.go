package domain

import (
	"errors"
	"strings"
)

var (
	ErrInvalidCardNumber = errors.New("invalid card number format")
	ErrCardTypeRequired  = errors.New("card type is required")
)

// CardDetails holds the card brand and its masked display number
// (e.g. "****1234") as returned by the payment provider.
type CardDetails struct {
	cardType   string
	cardNumber string
}

func NewCardDetails(cardType, cardNumber string) (CardDetails, error) {
	if len(cardNumber) < 4 {
		return CardDetails{}, ErrInvalidCardNumber
	}
	if cardType == "" {
		return CardDetails{}, ErrCardTypeRequired
	}
	return CardDetails{cardType: cardType, cardNumber: cardNumber}, nil
}

func (c CardDetails) Type() string {
	return c.cardType
}

func (c CardDetails) Number() string {
	return c.cardNumber
}

// IsMasked reports whether the number is in masked display form.
func (c CardDetails) IsMasked() bool {
	return strings.HasPrefix(c.cardNumber, "****")
}
