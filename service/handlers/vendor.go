package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sokoflow/service-storefront/service/business"
	"github.com/sokoflow/service-storefront/service/models"
	"github.com/sokoflow/service-storefront/service/repository"
)

func (api *ApiServer) CreateProductHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	vendor := vendorID(r)
	if vendor == "" {
		writeError(w, http.StatusUnauthorized, "vendor identity is required")
		return
	}

	var product models.Product
	if err := json.NewDecoder(r.Body).Decode(&product); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := api.Catalog.CreateProduct(ctx, vendor, &product)
	if errors.Is(err, business.ErrorInvalidProduct) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		api.Service.Log(ctx).WithError(err).Error("could not create product")
		writeError(w, http.StatusInternalServerError, "could not create product")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (api *ApiServer) UpdateProductHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	productID := mux.Vars(r)["productID"]

	vendor := vendorID(r)
	if vendor == "" {
		writeError(w, http.StatusUnauthorized, "vendor identity is required")
		return
	}

	var product models.Product
	if err := json.NewDecoder(r.Body).Decode(&product); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := api.Catalog.UpdateProduct(ctx, vendor, productID, &product)
	switch {
	case errors.Is(err, business.ErrorProductDoesNotExist):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, business.ErrorNotProductOwner):
		writeError(w, http.StatusForbidden, err.Error())
		return
	case errors.Is(err, business.ErrorInvalidProduct):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		api.Service.Log(ctx).WithError(err).Error("could not update product")
		writeError(w, http.StatusInternalServerError, "could not update product")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (api *ApiServer) DeleteProductHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	productID := mux.Vars(r)["productID"]

	vendor := vendorID(r)
	if vendor == "" {
		writeError(w, http.StatusUnauthorized, "vendor identity is required")
		return
	}

	err := api.Catalog.DeleteProduct(ctx, vendor, productID)
	switch {
	case errors.Is(err, business.ErrorProductDoesNotExist):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, business.ErrorNotProductOwner):
		writeError(w, http.StatusForbidden, err.Error())
		return
	case err != nil:
		api.Service.Log(ctx).WithError(err).Error("could not delete product")
		writeError(w, http.StatusInternalServerError, "could not delete product")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// VendorProductsHandler lists only the calling vendor's catalog.
func (api *ApiServer) VendorProductsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	vendor := vendorID(r)
	if vendor == "" {
		writeError(w, http.StatusUnauthorized, "vendor identity is required")
		return
	}

	products, err := api.Catalog.ListProducts(ctx, repository.ProductFilter{VendorID: vendor})
	if err != nil {
		api.Service.Log(ctx).WithError(err).Error("could not list vendor products")
		writeError(w, http.StatusInternalServerError, "could not list vendor products")
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// VendorSalesHandler returns the aggregated sales figures for the dashboard.
func (api *ApiServer) VendorSalesHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	vendor := vendorID(r)
	if vendor == "" {
		writeError(w, http.StatusUnauthorized, "vendor identity is required")
		return
	}

	summary, err := api.Catalog.VendorSales(ctx, vendor)
	if err != nil {
		api.Service.Log(ctx).WithError(err).Error("could not aggregate vendor sales")
		writeError(w, http.StatusInternalServerError, "could not aggregate vendor sales")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
