package notify

import (
	"fmt"
	"time"
)

// Receipt is one queued sale receipt addressed to a named account.
type Receipt struct {
	To       string    `json:"to"`
	Name     string    `json:"name"`
	SaleID   string    `json:"sale_id"`
	VolumeML int       `json:"volume_ml"`
	Amount   string    `json:"amount"`
	Method   string    `json:"method"`
	SoldAt   time.Time `json:"sold_at"`
	Tries    int       `json:"tries"`
	Created  time.Time `json:"created"`
}

func (r Receipt) Subject() string {
	return "Your BeCard receipt " + r.SaleID
}

func (r Receipt) Body() string {
	return fmt.Sprintf(`Hi %s,

Thanks for your purchase!

Sale: %s
Volume: %d ml
Amount: %s
Paid with: %s
Date: %s

- BeCard`, r.Name, r.SaleID, r.VolumeML, r.Amount, r.Method, r.SoldAt.Format("Jan 2, 2006 at 3:04 PM"))
}
