package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxLineQuantity caps a single line, merges included.
const MaxLineQuantity = 99

var (
	ErrInvalidQuantity  = errors.New("quantity must be at least 1")
	ErrQuantityTooLarge = errors.New("quantity exceeds the per line limit")
	ErrLineNotInCart    = errors.New("line does not belong to this cart")
)

// LineOptions are the opaque selections attached to a line (size, number, name print).
// Key order is insignificant.
type LineOptions map[string]string

// Key is the canonical encoding used to compare two option sets. encoding/json
// writes map keys sorted, so equal maps always produce equal keys.
func (o LineOptions) Key() string {
	if len(o) == 0 {
		return "{}"
	}

	b, err := json.Marshal(map[string]string(o))
	if err != nil {
		return "{}"
	}

	return string(b)
}

func (o LineOptions) Value() (driver.Value, error) {
	return o.Key(), nil
}

func (o *LineOptions) Scan(src any) error {
	var data []byte

	switch v := src.(type) {
	case nil:
		*o = LineOptions{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported options type %T", src)
	}

	opts := LineOptions{}
	if err := json.Unmarshal(data, &opts); err != nil {
		return fmt.Errorf("failed to unmarshal line options: %w", err)
	}

	*o = opts

	return nil
}

type CartLine struct {
	ID        uuid.UUID       `json:"id"`
	CartID    uuid.UUID       `json:"cart_id"`
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Options   LineOptions     `json:"options"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (l CartLine) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is the aggregate of a user's pending selections. Total is derived from
// the lines and every mutating method recomputes it before returning.
type Cart struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	Lines     []CartLine      `json:"items"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type LineChangeKind int

const (
	LineInserted LineChangeKind = iota + 1
	LineUpdated
	LineDeleted
)

// CartLineChange describes the single row a cart mutation touched, so the
// store can persist it without diffing the whole cart.
type CartLineChange struct {
	Kind LineChangeKind
	Line CartLine
}

func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

func (c *Cart) Recalculate() {
	total := decimal.Zero
	for _, line := range c.Lines {
		total = total.Add(line.Subtotal())
	}

	c.Total = total
}

func (c *Cart) findLine(productID uuid.UUID, optionsKey string) int {
	for i, line := range c.Lines {
		if line.ProductID == productID && line.Options.Key() == optionsKey {
			return i
		}
	}

	return -1
}

func (c *Cart) lineIndex(lineID uuid.UUID) int {
	for i, line := range c.Lines {
		if line.ID == lineID {
			return i
		}
	}

	return -1
}

func (c *Cart) HasLine(lineID uuid.UUID) bool {
	return c.lineIndex(lineID) >= 0
}

// AddOrMergeLine increments the quantity of the line holding the same product
// and options, or appends a new line priced at unitPrice. An existing line keeps
// its original price.
func (c *Cart) AddOrMergeLine(productID uuid.UUID, quantity int, options LineOptions, unitPrice decimal.Decimal) (*CartLineChange, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	if quantity > MaxLineQuantity {
		return nil, ErrQuantityTooLarge
	}

	if options == nil {
		options = LineOptions{}
	}

	now := time.Now()

	if i := c.findLine(productID, options.Key()); i >= 0 {
		if c.Lines[i].Quantity > MaxLineQuantity-quantity {
			return nil, ErrQuantityTooLarge
		}

		c.Lines[i].Quantity += quantity
		c.Lines[i].UpdatedAt = now
		c.touch(now)

		return &CartLineChange{Kind: LineUpdated, Line: c.Lines[i]}, nil
	}

	line := CartLine{
		ID:        uuid.New(),
		CartID:    c.ID,
		ProductID: productID,
		Quantity:  quantity,
		Price:     unitPrice,
		Options:   options,
		CreatedAt: now,
		UpdatedAt: now,
	}

	c.Lines = append(c.Lines, line)
	c.touch(now)

	return &CartLineChange{Kind: LineInserted, Line: line}, nil
}

// SetLineQuantity overwrites a line's quantity. Zero is rejected, removal is explicit.
func (c *Cart) SetLineQuantity(lineID uuid.UUID, quantity int) (*CartLineChange, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	if quantity > MaxLineQuantity {
		return nil, ErrQuantityTooLarge
	}

	i := c.lineIndex(lineID)
	if i < 0 {
		return nil, ErrLineNotInCart
	}

	now := time.Now()
	c.Lines[i].Quantity = quantity
	c.Lines[i].UpdatedAt = now
	c.touch(now)

	return &CartLineChange{Kind: LineUpdated, Line: c.Lines[i]}, nil
}

func (c *Cart) RemoveLine(lineID uuid.UUID) (*CartLineChange, error) {
	i := c.lineIndex(lineID)
	if i < 0 {
		return nil, ErrLineNotInCart
	}

	removed := c.Lines[i]
	c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
	c.touch(time.Now())

	return &CartLineChange{Kind: LineDeleted, Line: removed}, nil
}

func (c *Cart) touch(now time.Time) {
	c.UpdatedAt = now
	c.Recalculate()
}

type AddItemRequest struct {
	ProductID uuid.UUID   `json:"product_id" validate:"required"`
	Quantity  int         `json:"quantity"   validate:"required,min=1,max=99"`
	Options   LineOptions `json:"options"    validate:"omitempty,max=10,dive,keys,max=50,endkeys,max=255"`
}

type UpdateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"min=1,max=99"`
}

// ToMinorUnits converts an amount to whole cents. ok is false when the amount
// carries sub-cent digits.
func ToMinorUnits(amount decimal.Decimal) (int64, bool) {
	minor := amount.Shift(2)
	if !minor.IsInteger() {
		return 0, false
	}

	return minor.IntPart(), true
}
