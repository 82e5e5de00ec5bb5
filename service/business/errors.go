package business

import "errors"

var (
	ErrorInitializationFail = errors.New("internal configuration is invalid")

	ErrorCartEmpty = errors.New("cart has no items to pay for")

	ErrorCheckoutInProgress = errors.New("a checkout for this reference has already been submitted")

	ErrorInvalidProduct = errors.New("a product needs a name and a positive unit price")

	ErrorProductDoesNotExist = errors.New("specified product does not exist")

	ErrorNotProductOwner = errors.New("specified product belongs to a different vendor")
)
