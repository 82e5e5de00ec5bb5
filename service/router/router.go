package router

import (
	"github.com/gorilla/mux"
	"github.com/sokoflow/service-storefront/service/handlers"
)

func NewRouter(api *handlers.ApiServer) *mux.Router {
	router := mux.NewRouter().StrictSlash(true)

	// Health check endpoint
	router.HandleFunc("/health", handlers.HealthHandler).Methods("GET")

	// Storefront catalog
	router.HandleFunc("/products", api.ListProductsHandler).Methods("GET")
	router.HandleFunc("/products/{productID}", api.GetProductHandler).Methods("GET")
	router.HandleFunc("/categories", api.ListCategoriesHandler).Methods("GET")

	// Vendor dashboard
	router.HandleFunc("/vendor/products", api.VendorProductsHandler).Methods("GET")
	router.HandleFunc("/vendor/products", api.CreateProductHandler).Methods("POST")
	router.HandleFunc("/vendor/products/{productID}", api.UpdateProductHandler).Methods("PUT")
	router.HandleFunc("/vendor/products/{productID}", api.DeleteProductHandler).Methods("DELETE")
	router.HandleFunc("/vendor/sales", api.VendorSalesHandler).Methods("GET")

	// Cart
	router.HandleFunc("/carts/{cartID}", api.GetCartHandler).Methods("GET")
	router.HandleFunc("/carts/{cartID}", api.ClearCartHandler).Methods("DELETE")
	router.HandleFunc("/carts/{cartID}/items", api.AddCartItemHandler).Methods("POST")
	router.HandleFunc("/carts/{cartID}/items/{productID}", api.UpdateCartItemHandler).Methods("PUT")
	router.HandleFunc("/carts/{cartID}/items/{productID}", api.RemoveCartItemHandler).Methods("DELETE")

	// Checkout and gateway callback
	router.HandleFunc("/checkout", api.CheckoutHandler).Methods("POST")
	router.HandleFunc("/payments/callback", api.StkCallbackHandler).Methods("POST")

	return router
}
