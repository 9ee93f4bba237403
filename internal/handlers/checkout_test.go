package handlers

import (
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/mock/gomock"

	"storefront/internal/auth"
	"storefront/internal/mocks"
	"storefront/internal/models"
	"storefront/internal/recaptcha"
)

func checkoutBody(productID, recaptchaToken string) string {
	item := fmt.Sprintf(`{"type":"product","productId":"%s","quantity":2,"price":10}`, productID)
	return fmt.Sprintf(`{
		"items":[%s],
		"shippingInfo":{"fullName":"A B","phone":"555","address":"1 Rd","city":"X"},
		"subtotal":20,"shipping":5,"total":25,
		"paymentMethod":"COD",
		"recaptchaToken":"%s",
		"isGuest":true
	}`, item, recaptchaToken)
}

func performCreateOrder(t *testing.T, provider auth.Provider, verifier recaptcha.Verifier, body string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest("POST", "/api/orders", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	// db stays nil: every case here must reject before any store access.
	CreateOrder(nil, provider, verifier)(c)
	return w
}

func TestCreateOrderMissingRecaptchaToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	verifier := mocks.NewMockVerifier(ctrl)
	provider.EXPECT().Resolve(gomock.Any(), "").Return(nil, nil)

	w := performCreateOrder(t, provider, verifier, checkoutBody(primitive.NewObjectID().Hex(), ""))

	if w.Code != 400 {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "verification required") {
		t.Fatalf("expected verification required, got %s", w.Body.String())
	}
}

func TestCreateOrderVerificationRejected(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	verifier := mocks.NewMockVerifier(ctrl)
	provider.EXPECT().Resolve(gomock.Any(), "").Return(nil, nil)
	verifier.EXPECT().Verify(gomock.Any(), "bad").Return(false, nil)

	w := performCreateOrder(t, provider, verifier, checkoutBody(primitive.NewObjectID().Hex(), "bad"))

	if w.Code != 400 {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "verification failed") {
		t.Fatalf("expected verification failed, got %s", w.Body.String())
	}
}

func TestCreateOrderVerifierErrorFailsClosed(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	verifier := mocks.NewMockVerifier(ctrl)
	provider.EXPECT().Resolve(gomock.Any(), "").Return(nil, nil)
	verifier.EXPECT().Verify(gomock.Any(), "valid").Return(false, errors.New("verifier unreachable"))

	w := performCreateOrder(t, provider, verifier, checkoutBody(primitive.NewObjectID().Hex(), "valid"))

	if w.Code != 400 {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "verification failed") {
		t.Fatalf("expected verification failed, got %s", w.Body.String())
	}
}

func TestCreateOrderVerificationPrecedesItemValidation(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	verifier := mocks.NewMockVerifier(ctrl)
	provider.EXPECT().Resolve(gomock.Any(), "").Return(nil, nil)

	// Both the token and the items are missing; the token check must win.
	body := `{"items":[],"shippingInfo":{}}`
	w := performCreateOrder(t, provider, verifier, body)

	if w.Code != 400 {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "verification required") {
		t.Fatalf("expected verification required first, got %s", w.Body.String())
	}
}

func TestCreateOrderNoItems(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	verifier := mocks.NewMockVerifier(ctrl)
	provider.EXPECT().Resolve(gomock.Any(), "").Return(nil, nil)
	verifier.EXPECT().Verify(gomock.Any(), "valid").Return(true, nil)

	body := `{"items":[],"shippingInfo":{"fullName":"A B","phone":"555","address":"1 Rd","city":"X"},"recaptchaToken":"valid"}`
	w := performCreateOrder(t, provider, verifier, body)

	if w.Code != 400 {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "no items") {
		t.Fatalf("expected no items, got %s", w.Body.String())
	}
}

func TestCreateOrderMissingShippingInformation(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	verifier := mocks.NewMockVerifier(ctrl)
	provider.EXPECT().Resolve(gomock.Any(), "").Return(nil, nil)
	verifier.EXPECT().Verify(gomock.Any(), "valid").Return(true, nil)

	body := fmt.Sprintf(`{
		"items":[{"type":"product","productId":"%s","quantity":1,"price":10}],
		"shippingInfo":{"fullName":"A B","phone":"555","address":"1 Rd","city":"  "},
		"recaptchaToken":"valid"
	}`, primitive.NewObjectID().Hex())
	w := performCreateOrder(t, provider, verifier, body)

	if w.Code != 400 {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "missing shipping information") {
		t.Fatalf("expected missing shipping information, got %s", w.Body.String())
	}
}

func TestCreateOrderInvalidBearerToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockProvider(ctrl)
	verifier := mocks.NewMockVerifier(ctrl)
	provider.EXPECT().Resolve(gomock.Any(), "Bearer nope").Return(nil, auth.ErrInvalidToken)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest("POST", "/api/orders", strings.NewReader(checkoutBody(primitive.NewObjectID().Hex(), "valid")))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer nope")
	c.Request = req

	CreateOrder(nil, provider, verifier)(c)

	if w.Code != 401 {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

/* =========================
   ORDER ASSEMBLY
========================= */

func validCheckoutRequest(productID string) createOrderRequest {
	return createOrderRequest{
		Items: []checkoutItemRequest{{
			Type:      models.OrderItemProduct,
			ProductID: productID,
			Quantity:  2,
			Price:     10,
		}},
		ShippingInfo: checkoutShippingRequest{
			FullName: "A B",
			Phone:    "555",
			Address:  "1 Rd",
			City:     "X",
		},
		Subtotal:       20,
		Shipping:       5,
		Total:          25,
		PaymentMethod:  "COD",
		RecaptchaToken: "valid",
		IsGuest:        true,
	}
}

func TestBuildOrderGuestCheckout(t *testing.T) {
	productID := primitive.NewObjectID()
	order, err := buildOrderFromRequest(validCheckoutRequest(productID.Hex()), nil)
	if err != nil {
		t.Fatalf("buildOrderFromRequest returned error: %v", err)
	}

	if !order.IsGuest {
		t.Fatal("expected a guest order")
	}
	if order.User != nil {
		t.Fatal("guest order must not carry a user")
	}
	if order.Status != models.OrderStatusPending {
		t.Fatalf("expected default status pending, got %s", order.Status)
	}
	if order.PaymentMethod != models.PaymentMethodCOD {
		t.Fatalf("expected COD, got %s", order.PaymentMethod)
	}
	if want := models.OrderNumberFromID(order.ID); order.OrderNumber != want {
		t.Fatalf("order number %s does not match derivation %s", order.OrderNumber, want)
	}
	hex := order.ID.Hex()
	if order.OrderNumber != "#"+strings.ToUpper(hex[len(hex)-6:]) {
		t.Fatalf("order number %s does not follow the derivation rule", order.OrderNumber)
	}
	if len(order.Items) != 1 || order.Items[0].ProductID == nil || *order.Items[0].ProductID != productID {
		t.Fatalf("unexpected items: %+v", order.Items)
	}
}

func TestBuildOrderTrimsShippingInfo(t *testing.T) {
	req := validCheckoutRequest(primitive.NewObjectID().Hex())
	req.ShippingInfo = checkoutShippingRequest{
		FullName: "  A B  ",
		Phone:    " 555 ",
		Address:  " 1 Rd ",
		City:     " X ",
		Email:    " a@b.test ",
	}

	order, err := buildOrderFromRequest(req, nil)
	if err != nil {
		t.Fatalf("buildOrderFromRequest returned error: %v", err)
	}
	info := order.ShippingInfo
	if info.FullName != "A B" || info.Phone != "555" || info.Address != "1 Rd" || info.City != "X" || info.Email != "a@b.test" {
		t.Fatalf("expected trimmed shipping info, got %+v", info)
	}
}

func TestBuildOrderAnonymousCallerIsAlwaysGuest(t *testing.T) {
	req := validCheckoutRequest(primitive.NewObjectID().Hex())
	req.IsGuest = false

	order, err := buildOrderFromRequest(req, nil)
	if err != nil {
		t.Fatalf("buildOrderFromRequest returned error: %v", err)
	}
	if !order.IsGuest || order.User != nil {
		t.Fatal("anonymous submission must be forced to a guest order")
	}
}

func TestBuildOrderAttachesAuthenticatedUser(t *testing.T) {
	ident := &auth.Identity{UserID: primitive.NewObjectID()}
	req := validCheckoutRequest(primitive.NewObjectID().Hex())
	req.IsGuest = false

	order, err := buildOrderFromRequest(req, ident)
	if err != nil {
		t.Fatalf("buildOrderFromRequest returned error: %v", err)
	}
	if order.IsGuest {
		t.Fatal("expected a non-guest order")
	}
	if order.User == nil || *order.User != ident.UserID {
		t.Fatal("expected the caller attached as owner")
	}
}

func TestBuildOrderAuthenticatedGuestCheckoutStaysDetached(t *testing.T) {
	ident := &auth.Identity{UserID: primitive.NewObjectID()}
	req := validCheckoutRequest(primitive.NewObjectID().Hex())
	req.IsGuest = true

	order, err := buildOrderFromRequest(req, ident)
	if err != nil {
		t.Fatalf("buildOrderFromRequest returned error: %v", err)
	}
	if !order.IsGuest || order.User != nil {
		t.Fatal("declared guest checkout must stay detached from the account")
	}
}

func TestBuildOrderRejectsInvalidPaymentMethod(t *testing.T) {
	req := validCheckoutRequest(primitive.NewObjectID().Hex())
	req.PaymentMethod = "card"
	if _, err := buildOrderFromRequest(req, nil); err == nil || err.Error() != "invalid payment method" {
		t.Fatalf("expected invalid payment method, got %v", err)
	}
}

func TestBuildOrderDefaultsEmptyPaymentMethod(t *testing.T) {
	req := validCheckoutRequest(primitive.NewObjectID().Hex())
	req.PaymentMethod = ""
	order, err := buildOrderFromRequest(req, nil)
	if err != nil {
		t.Fatalf("buildOrderFromRequest returned error: %v", err)
	}
	if order.PaymentMethod != models.PaymentMethodCOD {
		t.Fatalf("expected COD default, got %s", order.PaymentMethod)
	}
}

func TestBuildOrderRejectsUnknownStatus(t *testing.T) {
	req := validCheckoutRequest(primitive.NewObjectID().Hex())
	req.Status = "refunded"
	if _, err := buildOrderFromRequest(req, nil); err == nil || err.Error() != "invalid status" {
		t.Fatalf("expected invalid status, got %v", err)
	}
}

func TestBuildOrderItemValidation(t *testing.T) {
	bundleID := primitive.NewObjectID()
	productID := primitive.NewObjectID()

	tests := []struct {
		name string
		item checkoutItemRequest
		want string
	}{
		{"zero quantity", checkoutItemRequest{Type: "product", ProductID: productID.Hex(), Quantity: 0}, "quantity must be greater than zero"},
		{"unknown type", checkoutItemRequest{Type: "gift", Quantity: 1}, "invalid item type"},
		{"bad product ref", checkoutItemRequest{Type: "product", ProductID: "xyz", Quantity: 1}, "invalid productId"},
		{"bad bundle ref", checkoutItemRequest{Type: "bundle", BundleID: "xyz", Quantity: 1}, "invalid bundleId"},
		{"bad bundle products", checkoutItemRequest{Type: "bundle", BundleID: bundleID.Hex(), Products: []string{"xyz"}, Quantity: 1}, "invalid bundle products"},
	}

	for _, tt := range tests {
		req := validCheckoutRequest(productID.Hex())
		req.Items = []checkoutItemRequest{tt.item}
		_, err := buildOrderFromRequest(req, nil)
		if err == nil || err.Error() != tt.want {
			t.Fatalf("%s: expected %q, got %v", tt.name, tt.want, err)
		}
	}
}

func TestBuildOrderBundleItem(t *testing.T) {
	bundleID := primitive.NewObjectID()
	inner := primitive.NewObjectID()
	req := validCheckoutRequest(primitive.NewObjectID().Hex())
	req.Items = []checkoutItemRequest{{
		Type:     models.OrderItemBundle,
		BundleID: bundleID.Hex(),
		Products: []string{inner.Hex()},
		Title:    "Starter Pack",
		Quantity: 1,
		Price:    30,
	}}

	order, err := buildOrderFromRequest(req, nil)
	if err != nil {
		t.Fatalf("buildOrderFromRequest returned error: %v", err)
	}
	item := order.Items[0]
	if item.BundleID == nil || *item.BundleID != bundleID {
		t.Fatal("expected bundle ref preserved")
	}
	if len(item.Products) != 1 || item.Products[0] != inner {
		t.Fatal("expected bundled products preserved")
	}
	if item.ProductID != nil {
		t.Fatal("bundle item must not carry a product ref")
	}
}
