//go:build unit || integration

package builder

import (
	"time"

	"checkout-engine/internal/domain/cart"
	"checkout-engine/internal/domain/coupon"
	"checkout-engine/internal/domain/money"

	"github.com/google/uuid"
)

type LineSpec struct {
	ProductID  uuid.UUID
	CategoryID *uuid.UUID
	Name       string
	Quantity   int
	UnitPrice  int64
}

type CartBuilder struct {
	ID         uuid.UUID
	OwnerID    uuid.UUID
	Status     cart.Status
	Currency   money.Currency
	Lines      []LineSpec
	CouponCode string
	Now        time.Time
}

func NewCartBuilder() *CartBuilder {
	return &CartBuilder{
		ID:       uuid.New(),
		OwnerID:  uuid.New(),
		Status:   cart.StatusOpen,
		Currency: "INR",
		Now:      ReferenceTime,
	}
}

func (b *CartBuilder) With(mutate func(*CartBuilder)) *CartBuilder {
	mutate(b)
	return b
}

func (b *CartBuilder) WithLine(unitPrice int64, quantity int) *CartBuilder {
	b.Lines = append(b.Lines, LineSpec{
		ProductID: uuid.New(),
		Name:      "Item",
		Quantity:  quantity,
		UnitPrice: unitPrice,
	})
	return b
}

func (b *CartBuilder) WithCoupon(code string) *CartBuilder {
	b.CouponCode = code
	return b
}

func (b *CartBuilder) BuildLines() ([]cart.Line, error) {
	lines := make([]cart.Line, 0, len(b.Lines))
	for _, s := range b.Lines {
		l, err := cart.NewLine(s.ProductID, nil, s.CategoryID, s.Name, s.Quantity, s.UnitPrice)
		if err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, nil
}

func (b *CartBuilder) BuildDomain() (*cart.Cart, error) {
	lines, err := b.BuildLines()
	if err != nil {
		return nil, err
	}
	var code *coupon.Code
	if b.CouponCode != "" {
		c, err := coupon.NewCode(b.CouponCode)
		if err != nil {
			return nil, err
		}
		code = &c
	}
	return cart.ReconstructCart(b.ID, b.OwnerID, b.Status, b.Currency, lines, code, b.Now, b.Now), nil
}

func (b *CartBuilder) MustBuild() *cart.Cart {
	c, err := b.BuildDomain()
	if err != nil {
		panic(err)
	}
	return c
}
