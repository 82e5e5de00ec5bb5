package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pitabwire/frame"
	"github.com/sokoflow/service-storefront/service/business"
	"github.com/sokoflow/service-storefront/service/cart"
)

// CartService is the slice of the cart layer the HTTP surface needs.
type CartService interface {
	Get(ctx context.Context, id string) (cart.Cart, error)
	Save(ctx context.Context, c cart.Cart) error
	Clear(ctx context.Context, id string) error
}

// Emitter is satisfied by *frame.Service.
type Emitter interface {
	Emit(ctx context.Context, name string, payload any) error
}

// ApiServer wires the HTTP surface to the business layer.
type ApiServer struct {
	Service  *frame.Service
	Emitter  Emitter
	Checkout business.CheckoutBusiness
	Catalog  business.CatalogBusiness
	Carts    CartService
}

func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// vendorID resolves the authenticated vendor from the identity boundary.
// Identity management itself lives outside this service.
func vendorID(r *http.Request) string {
	return r.Header.Get("X-Vendor-ID")
}
