package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sokoflow/service-storefront/service/business"
	"github.com/sokoflow/service-storefront/service/cart"
)

type addCartItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

func (api *ApiServer) GetCartHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cartID := mux.Vars(r)["cartID"]

	snapshot, err := api.Carts.Get(ctx, cartID)
	if err != nil {
		api.Service.Log(ctx).WithError(err).Error("could not load cart")
		writeError(w, http.StatusInternalServerError, "could not load cart")
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// AddCartItemHandler snapshots the product's current price into the cart
// line so later price edits do not change a cart already being checked out.
func (api *ApiServer) AddCartItemHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cartID := mux.Vars(r)["cartID"]

	var request addCartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if request.ProductID == "" || request.Quantity <= 0 {
		writeError(w, http.StatusBadRequest, "productId and a positive quantity are required")
		return
	}

	product, err := api.Catalog.GetProduct(ctx, request.ProductID)
	if errors.Is(err, business.ErrorProductDoesNotExist) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		api.Service.Log(ctx).WithError(err).Error("could not load product for cart")
		writeError(w, http.StatusInternalServerError, "could not load product")
		return
	}

	snapshot, err := api.Carts.Get(ctx, cartID)
	if err != nil {
		api.Service.Log(ctx).WithError(err).Error("could not load cart")
		writeError(w, http.StatusInternalServerError, "could not load cart")
		return
	}

	snapshot = snapshot.WithItem(cart.Item{
		ProductID: product.GetID(),
		VendorID:  product.VendorID,
		Name:      product.Name,
		UnitPrice: product.UnitPrice.Decimal,
		Currency:  product.Currency,
		Quantity:  request.Quantity,
	})

	if err = api.Carts.Save(ctx, snapshot); err != nil {
		api.Service.Log(ctx).WithError(err).Error("could not save cart")
		writeError(w, http.StatusInternalServerError, "could not save cart")
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (api *ApiServer) UpdateCartItemHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)
	cartID := vars["cartID"]
	productID := vars["productID"]

	var request updateCartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	snapshot, err := api.Carts.Get(ctx, cartID)
	if err != nil {
		api.Service.Log(ctx).WithError(err).Error("could not load cart")
		writeError(w, http.StatusInternalServerError, "could not load cart")
		return
	}

	snapshot = snapshot.WithQuantity(productID, request.Quantity)

	if err = api.Carts.Save(ctx, snapshot); err != nil {
		api.Service.Log(ctx).WithError(err).Error("could not save cart")
		writeError(w, http.StatusInternalServerError, "could not save cart")
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (api *ApiServer) RemoveCartItemHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)
	cartID := vars["cartID"]
	productID := vars["productID"]

	snapshot, err := api.Carts.Get(ctx, cartID)
	if err != nil {
		api.Service.Log(ctx).WithError(err).Error("could not load cart")
		writeError(w, http.StatusInternalServerError, "could not load cart")
		return
	}

	snapshot = snapshot.WithoutItem(productID)

	if err = api.Carts.Save(ctx, snapshot); err != nil {
		api.Service.Log(ctx).WithError(err).Error("could not save cart")
		writeError(w, http.StatusInternalServerError, "could not save cart")
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (api *ApiServer) ClearCartHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cartID := mux.Vars(r)["cartID"]

	if err := api.Carts.Clear(ctx, cartID); err != nil {
		api.Service.Log(ctx).WithError(err).Error("could not clear cart")
		writeError(w, http.StatusInternalServerError, "could not clear cart")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
