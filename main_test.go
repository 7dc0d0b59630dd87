package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Zuniga63/digital-menu-api/config"
	"github.com/Zuniga63/digital-menu-api/database"
	"github.com/Zuniga63/digital-menu-api/media"
	"github.com/Zuniga63/digital-menu-api/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testConfig = config.Config{
	Env:       "test",
	AppName:   "Digital Menu",
	APIPrefix: "/api",
	Auth:      config.Auth{Secret: "test-secret", TokenTTL: time.Hour},
}

// Create DB connection for tests
func getTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := database.Open(config.Database{Driver: "sqlite", DSN: dsn})
	if err != nil {
		t.Fatal("failed to connect to test database: " + err.Error())
	}
	if err := database.Migrate(db); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { database.Close(db) })
	return db
}

// Helper: run a test inside a transaction and roll it back
func withTestTransaction(t *testing.T, testFunc func(tx *gorm.DB)) {
	db := getTestDB(t)

	tx := db.Begin()
	if tx.Error != nil {
		t.Fatal(tx.Error)
	}

	defer tx.Rollback()

	testFunc(tx)
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
	store  *media.Memory
	token  string
}

func newTestServer(t *testing.T, db *gorm.DB) *testServer {
	store := media.NewMemory()
	return &testServer{t: t, router: SetupRouter(NewApp(testConfig, db, store, nil)), store: store}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) json(method, path string, payload interface{}) *httptest.ResponseRecorder {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(s.t, err)
		body = bytes.NewBuffer(raw)
	}
	req, _ := http.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	return s.do(req)
}

func (s *testServer) form(method, path string, fields map[string]string, img []byte) *httptest.ResponseRecorder {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(s.t, mw.WriteField(k, v))
	}
	if img != nil {
		fw, err := mw.CreateFormFile("image", "image.png")
		require.NoError(s.t, err)
		_, err = fw.Write(img)
		require.NoError(s.t, err)
	}
	require.NoError(s.t, mw.Close())

	req, _ := http.NewRequest(method, path, body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return s.do(req)
}

// signUp registers a user and keeps its token for later requests. The first
// user of a database is an administrator.
func (s *testServer) signUp(email string) {
	w := s.json("POST", "/api/auth/local/signup", map[string]string{
		"name":     "Test User",
		"email":    email,
		"password": "S3cret!pass",
	})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &resp))
	s.token = resp.Token
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func pngImage(t *testing.T, width, height int) []byte {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, width, height))))
	return buf.Bytes()
}

// ----------------------- TESTS ----------------------- //

func TestHealth(t *testing.T) {
	withTestTransaction(t, func(db *gorm.DB) {
		s := newTestServer(t, db)

		w := s.json("GET", "/api/health", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	})
}

func TestSignUpAndSignIn(t *testing.T) {
	withTestTransaction(t, func(db *gorm.DB) {
		s := newTestServer(t, db)
		s.signUp("ana@example.com")
		assert.NotEmpty(t, s.token)

		w := s.json("POST", "/api/auth/local/signin", map[string]string{
			"email":    "ana@example.com",
			"password": "S3cret!pass",
		})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, decode(t, w)["token"])

		w = s.json("POST", "/api/auth/local/signin", map[string]string{
			"email":    "ana@example.com",
			"password": "wrong",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decode(t, w)
		assert.Equal(t, false, resp["ok"])
		assert.NotEmpty(t, resp["message"])

		w = s.json("POST", "/api/auth/local/signup", map[string]string{"name": "Al", "email": "nope"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		errs := decode(t, w)["validationErrors"].(map[string]interface{})
		assert.Contains(t, errs, "name")
		assert.Contains(t, errs, "email")
		assert.Contains(t, errs, "password")
	})
}

func TestWriteRoutesRequireEditor(t *testing.T) {
	withTestTransaction(t, func(db *gorm.DB) {
		s := newTestServer(t, db)

		w := s.form("POST", "/api/product-categories", map[string]string{"name": "Drinks"}, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		s.signUp("admin@example.com")
		s.signUp("guest@example.com")
		w = s.form("POST", "/api/product-categories", map[string]string{"name": "Drinks"}, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = s.json("GET", "/api/product-categories", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestOptionSetEndpoints(t *testing.T) {
	withTestTransaction(t, func(db *gorm.DB) {
		s := newTestServer(t, db)
		s.signUp("admin@example.com")

		w := s.json("POST", "/api/option-sets", map[string]interface{}{
			"name":  "Size",
			"items": []map[string]interface{}{{"name": "Small"}, {"name": "Medium"}, {"name": "Large"}},
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var created struct {
			OptionSet models.OptionSet `json:"optionSet"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
		set := created.OptionSet
		require.Len(t, set.Items, 3)

		path := fmt.Sprintf("/api/option-sets/%d", set.ID)
		w = s.json("DELETE", fmt.Sprintf("%s/items/%d", path, set.Items[1].ID), nil)
		assert.Equal(t, http.StatusOK, w.Code)

		w = s.json("GET", path+"/items", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var listed struct {
			OptionItems []models.OptionSetItem `json:"optionItems"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
		require.Len(t, listed.OptionItems, 2)
		assert.Equal(t, "Small", listed.OptionItems[0].Name)
		assert.Equal(t, 1, listed.OptionItems[0].Order)
		assert.Equal(t, "Large", listed.OptionItems[1].Name)
		assert.Equal(t, 2, listed.OptionItems[1].Order)

		w = s.form("POST", path+"/items", map[string]string{"name": "Huge", "isEnabled": "false"}, pngImage(t, 8, 6))
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		item := decode(t, w)["optionItem"].(map[string]interface{})
		assert.Equal(t, false, item["isEnabled"])
		assert.EqualValues(t, 3, item["order"])
		assert.EqualValues(t, 8, item["image"].(map[string]interface{})["width"])

		w = s.json("PUT", path+"/disabled", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, decode(t, w)["changed"])
		w = s.json("PUT", path+"/disabled", nil)
		assert.Equal(t, false, decode(t, w)["changed"])

		w = s.json("PUT", path+"/update-name", map[string]string{"name": "Cup size"})
		assert.Equal(t, http.StatusOK, w.Code)

		w = s.json("DELETE", path, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Zero(t, s.store.Len())

		w = s.json("GET", path, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, false, decode(t, w)["ok"])
	})
}

func TestCreateOptionSetReportsItemErrors(t *testing.T) {
	withTestTransaction(t, func(db *gorm.DB) {
		s := newTestServer(t, db)
		s.signUp("admin@example.com")

		w := s.json("POST", "/api/option-sets", map[string]interface{}{
			"name":  "Size",
			"items": []map[string]interface{}{{"name": "Small"}, {"name": "M"}},
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		errs := decode(t, w)["validationErrors"].(map[string]interface{})
		items := errs["items"].([]interface{})
		require.Len(t, items, 1)
		assert.EqualValues(t, 1, items[0].(map[string]interface{})["index"])

		w = s.json("POST", "/api/option-sets", map[string]interface{}{"name": "Size", "items": "Small"})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var count int64
		db.Model(&models.OptionSet{}).Count(&count)
		assert.Zero(t, count)
	})
}

func TestCategoryEndpoints(t *testing.T) {
	withTestTransaction(t, func(db *gorm.DB) {
		s := newTestServer(t, db)
		s.signUp("admin@example.com")

		w := s.form("POST", "/api/product-categories", map[string]string{"name": "Drinks"}, pngImage(t, 4, 3))
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		drinks := decode(t, w)["category"].(map[string]interface{})
		assert.EqualValues(t, 1, drinks["order"])
		img := drinks["image"].(map[string]interface{})
		assert.EqualValues(t, 4, img["width"])
		assert.EqualValues(t, 3, img["height"])
		assert.Equal(t, "png", img["format"])
		assert.True(t, strings.HasPrefix(img["publicId"].(string), "drinks-"))

		w = s.form("POST", "/api/product-categories", map[string]string{"name": "Snacks"}, nil)
		require.Equal(t, http.StatusCreated, w.Code)
		snacks := decode(t, w)["category"].(map[string]interface{})

		w = s.form("POST", "/api/product-categories", map[string]string{"name": "Drinks"}, pngImage(t, 2, 2))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, 1, s.store.Len(), "the rejected upload is destroyed")

		w = s.form("POST", "/api/products", map[string]string{
			"name":       "Coffee",
			"price":      "2500",
			"categoryId": fmt.Sprint(drinks["id"]),
		}, nil)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		coffee := decode(t, w)["product"].(map[string]interface{})

		w = s.json("DELETE", fmt.Sprintf("/api/product-categories/%v", drinks["id"]), nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Zero(t, s.store.Len())

		w = s.json("GET", fmt.Sprintf("/api/product-categories/%v", snacks["id"]), nil)
		assert.EqualValues(t, 1, decode(t, w)["category"].(map[string]interface{})["order"])

		w = s.json("GET", "/api/products/"+coffee["slug"].(string), nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Nil(t, decode(t, w)["product"].(map[string]interface{})["categoryId"])
	})
}

func TestProductEndpoints(t *testing.T) {
	withTestTransaction(t, func(db *gorm.DB) {
		s := newTestServer(t, db)
		s.signUp("admin@example.com")

		w := s.json("POST", "/api/option-sets", map[string]interface{}{
			"name":  "Size",
			"items": []map[string]interface{}{{"name": "Small"}, {"name": "Large", "isEnabled": false}},
		})
		require.Equal(t, http.StatusCreated, w.Code)
		setID := decode(t, w)["optionSet"].(map[string]interface{})["id"]

		w = s.form("POST", "/api/products", map[string]string{
			"name":         "Café Latte",
			"price":        "2500",
			"optionSetIds": fmt.Sprintf(`["%v"]`, setID),
		}, pngImage(t, 2, 2))
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		resp := decode(t, w)
		assert.Equal(t, []interface{}{"the product is not associated with a category"}, resp["warnings"])
		product := resp["product"].(map[string]interface{})
		assert.Equal(t, "cafe-latte", product["slug"])
		assert.Equal(t, true, product["published"])

		w = s.json("GET", "/api/products/cafe-latte", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var shown struct {
			Product models.Product `json:"product"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &shown))
		require.Len(t, shown.Product.OptionSets, 1)
		pos := shown.Product.OptionSets[0]
		require.Len(t, pos.Items, 2)
		assert.True(t, pos.Items[0].Published)
		assert.False(t, pos.Items[1].Published)

		id := shown.Product.ID
		w = s.json("PUT", fmt.Sprintf("/api/products/%d/option-sets/%d/items/%d", id, pos.ID, pos.Items[1].ID),
			map[string]interface{}{"price": "300", "published": true})
		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

		s.token = ""
		w = s.json("PUT", fmt.Sprintf("/api/products/%d/add-view", id), nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"ok":true}`, w.Body.String())
		w = s.json("PUT", "/api/products/9999/add-view", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = s.json("DELETE", fmt.Sprintf("/api/products/%d", id), nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestProductValidationErrors(t *testing.T) {
	withTestTransaction(t, func(db *gorm.DB) {
		s := newTestServer(t, db)
		s.signUp("admin@example.com")

		w := s.form("POST", "/api/products", map[string]string{"name": "Tea", "price": "50"}, pngImage(t, 2, 2))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		errs := decode(t, w)["validationErrors"].(map[string]interface{})
		assert.Contains(t, errs, "price")
		assert.Zero(t, s.store.Len())
	})
}

func TestUploadFailureIsBadGateway(t *testing.T) {
	withTestTransaction(t, func(db *gorm.DB) {
		s := newTestServer(t, db)
		s.signUp("admin@example.com")
		s.store.FailNext = fmt.Errorf("cloud unavailable")

		w := s.form("POST", "/api/product-categories", map[string]string{"name": "Drinks"}, pngImage(t, 2, 2))
		assert.Equal(t, http.StatusBadGateway, w.Code)

		var count int64
		db.Model(&models.ProductCategory{}).Count(&count)
		assert.Zero(t, count)
	})
}

func TestHome(t *testing.T) {
	withTestTransaction(t, func(db *gorm.DB) {
		s := newTestServer(t, db)
		s.signUp("admin@example.com")

		for _, name := range []string{"Drinks", "Closed"} {
			w := s.form("POST", "/api/product-categories", map[string]string{"name": name}, nil)
			require.Equal(t, http.StatusCreated, w.Code)
		}
		w := s.json("PUT", "/api/product-categories/2/disabled", nil)
		require.Equal(t, http.StatusOK, w.Code)
		w = s.form("POST", "/api/products", map[string]string{"name": "Coffee", "price": "2500", "categoryId": "1"}, nil)
		require.Equal(t, http.StatusCreated, w.Code)
		w = s.form("POST", "/api/products", map[string]string{"name": "Draft", "price": "2500", "categoryId": "1", "published": "false"}, nil)
		require.Equal(t, http.StatusCreated, w.Code)

		s.token = ""
		w = s.json("GET", "/api/home", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Categories []models.ProductCategory `json:"categories"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Categories, 1)
		require.Len(t, resp.Categories[0].Products, 1)
		assert.Equal(t, "Coffee", resp.Categories[0].Products[0].Name)
	})
}

func TestProductAttachmentEndpoints(t *testing.T) {
	withTestTransaction(t, func(db *gorm.DB) {
		s := newTestServer(t, db)
		s.signUp("admin@example.com")

		w := s.json("POST", "/api/option-sets", map[string]interface{}{
			"name":  "Milk",
			"items": []map[string]interface{}{{"name": "Whole"}, {"name": "Oat"}},
		})
		require.Equal(t, http.StatusCreated, w.Code)
		w = s.form("POST", "/api/products", map[string]string{"name": "Coffee", "price": "2500"}, nil)
		require.Equal(t, http.StatusCreated, w.Code)

		w = s.json("POST", "/api/products/1/option-sets", map[string]interface{}{"optionSetIds": []uint{1, 42}})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.Len(t, decode(t, w)["optionSets"], 1)

		w = s.json("PUT", "/api/products/1/category", map[string]interface{}{"categoryId": 7})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []interface{}{"the category was not found"}, decode(t, w)["warnings"])

		w = s.json("DELETE", "/api/products/1/option-sets", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.EqualValues(t, 1, decode(t, w)["removed"])

		w = s.json("POST", "/api/products/99/option-sets", map[string]interface{}{"optionSetIds": []uint{1}})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
