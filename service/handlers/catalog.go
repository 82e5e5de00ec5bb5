package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/sokoflow/service-storefront/service/business"
	"github.com/sokoflow/service-storefront/service/repository"
)

// ListProductsHandler serves the storefront catalog with optional
// q/category/maxPrice filters.
func (api *ApiServer) ListProductsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter := repository.ProductFilter{
		Query:    r.URL.Query().Get("q"),
		Category: r.URL.Query().Get("category"),
	}
	if maxPrice := r.URL.Query().Get("maxPrice"); maxPrice != "" {
		price, err := decimal.NewFromString(maxPrice)
		if err != nil {
			writeError(w, http.StatusBadRequest, "maxPrice must be a number")
			return
		}
		filter.MaxPrice = decimal.NullDecimal{Valid: true, Decimal: price}
	}

	products, err := api.Catalog.ListProducts(ctx, filter)
	if err != nil {
		api.Service.Log(ctx).WithError(err).Error("could not list products")
		writeError(w, http.StatusInternalServerError, "could not list products")
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (api *ApiServer) GetProductHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	productID := mux.Vars(r)["productID"]

	product, err := api.Catalog.GetProduct(ctx, productID)
	if errors.Is(err, business.ErrorProductDoesNotExist) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		api.Service.Log(ctx).WithError(err).Error("could not load product")
		writeError(w, http.StatusInternalServerError, "could not load product")
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (api *ApiServer) ListCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	categories, err := api.Catalog.ListCategories(ctx)
	if err != nil {
		api.Service.Log(ctx).WithError(err).Error("could not list categories")
		writeError(w, http.StatusInternalServerError, "could not list categories")
		return
	}
	writeJSON(w, http.StatusOK, categories)
}
