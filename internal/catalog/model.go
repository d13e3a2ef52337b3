package catalog

// Equipment is a dispensing tap bound to one product at one point of sale.
type Equipment struct {
	ID            int    `db:"id" json:"id"`
	TenantID      int    `db:"tenant_id" json:"tenant_id"`
	PointOfSaleID int    `db:"point_of_sale_id" json:"point_of_sale_id"`
	ProductID     *int   `db:"product_id" json:"product_id,omitempty"`
	Name          string `db:"name" json:"name"`
	Active        bool   `db:"active" json:"active"`
}
