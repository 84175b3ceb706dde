package handlers

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "invoicer/internal/errors"
	"invoicer/internal/middleware"
	"invoicer/internal/models"
	"invoicer/internal/services"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")

func setupUserRouter(handler *UserHandler) *gin.Engine {
	r := gin.New()
	r.Use(middleware.ErrorHandler(apperrors.ModeTest))
	auth := r.Group("/user", injectUserID("u-1"))
	auth.GET("/me", handler.Me)
	auth.PATCH("/update-user", handler.UpdateUser)
	auth.POST("/delete-user", handler.DeleteUser)
	auth.POST("/upload-profile-image", handler.UploadProfileImage)
	auth.POST("/delete-profile-image", handler.DeleteProfileImage)
	return r
}

func multipartRequest(t *testing.T, field, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if field != "" {
		part, err := w.CreateFormFile(field, filename)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatal(err)
		}
	} else if err := w.WriteField("note", "no file"); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/user/upload-profile-image", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestUserHandler_Me(t *testing.T) {
	t.Run("returns the authenticated user", func(t *testing.T) {
		r := setupUserRouter(NewUserHandler(&mockUserService{}, &mockAuditService{}))

		rec := doRequest(r, "GET", "/user/me", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		user := parseJSON(t, rec)["user"].(map[string]interface{})
		if user["_id"] != "u-1" || user["firstName"] != "Jane" {
			t.Errorf("unexpected user %v", user)
		}
	})

	t.Run("returns 401 without auth", func(t *testing.T) {
		handler := NewUserHandler(&mockUserService{}, &mockAuditService{})
		r := gin.New()
		r.Use(middleware.ErrorHandler(apperrors.ModeTest))
		r.GET("/user/me", handler.Me)

		rec := doRequest(r, "GET", "/user/me", "")

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}

func TestUserHandler_UpdateUser(t *testing.T) {
	t.Run("updates only supplied fields", func(t *testing.T) {
		var got services.ProfileUpdate
		userSvc := &mockUserService{
			updateProfileFn: func(userID string, in services.ProfileUpdate) (*models.User, error) {
				got = in
				return &models.User{Base: models.Base{ID: userID}, FirstName: *in.FirstName, Email: "owner@example.com"}, nil
			},
		}
		audit := &mockAuditService{}
		r := setupUserRouter(NewUserHandler(userSvc, audit))

		rec := doRequest(r, "PATCH", "/user/update-user", `{"firstName":"Janet"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.FirstName == nil || *got.FirstName != "Janet" {
			t.Errorf("expected firstName Janet, got %v", got.FirstName)
		}
		if got.LastName != nil || got.Email != nil {
			t.Error("unsupplied fields must stay nil")
		}
		if len(audit.actions) != 1 || audit.actions[0] != "UPDATE_USER" {
			t.Errorf("expected UPDATE_USER audit entry, got %v", audit.actions)
		}
	})

	t.Run("rejects password changes", func(t *testing.T) {
		called := false
		userSvc := &mockUserService{
			updateProfileFn: func(string, services.ProfileUpdate) (*models.User, error) {
				called = true
				return &models.User{}, nil
			},
		}
		r := setupUserRouter(NewUserHandler(userSvc, &mockAuditService{}))

		rec := doRequest(r, "PATCH", "/user/update-user", `{"firstName":"Janet","password":"secret"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertMessage(t, parseJSON(t, rec), "Password cannot be updated with this operation.")
		if called {
			t.Error("service must not be called")
		}
	})

	t.Run("returns every failing field", func(t *testing.T) {
		r := setupUserRouter(NewUserHandler(&mockUserService{}, &mockAuditService{}))

		rec := doRequest(r, "PATCH", "/user/update-user", `{"firstName":"Al","email":"nope"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		result := parseJSON(t, rec)
		details, _ := result["details"].([]interface{})
		if len(details) != 2 {
			t.Fatalf("expected 2 details, got %v", result)
		}
		if details[1] != "email must be a valid email address" {
			t.Errorf("unexpected detail %v", details[1])
		}
	})

	t.Run("returns 400 when email is taken", func(t *testing.T) {
		userSvc := &mockUserService{
			updateProfileFn: func(string, services.ProfileUpdate) (*models.User, error) {
				return nil, apperrors.ErrDuplicateEmail
			},
		}
		r := setupUserRouter(NewUserHandler(userSvc, &mockAuditService{}))

		rec := doRequest(r, "PATCH", "/user/update-user", `{"email":"taken@example.com"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "DUPLICATE_EMAIL")
	})
}

func TestUserHandler_DeleteUser(t *testing.T) {
	t.Run("deletes with password confirmation", func(t *testing.T) {
		var gotID, gotPassword string
		userSvc := &mockUserService{
			deleteUserFn: func(userID, password string) error {
				gotID, gotPassword = userID, password
				return nil
			},
		}
		r := setupUserRouter(NewUserHandler(userSvc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/user/delete-user", `{"password":"123456"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotID != "u-1" || gotPassword != "123456" {
			t.Errorf("unexpected call (%q, %q)", gotID, gotPassword)
		}
	})

	t.Run("requires a password", func(t *testing.T) {
		r := setupUserRouter(NewUserHandler(&mockUserService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/user/delete-user", `{}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertMessage(t, parseJSON(t, rec), "password is a required field")
	})

	t.Run("returns 400 on wrong password", func(t *testing.T) {
		userSvc := &mockUserService{
			deleteUserFn: func(string, string) error { return apperrors.ErrInvalidPassword },
		}
		r := setupUserRouter(NewUserHandler(userSvc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/user/delete-user", `{"password":"wrong"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_PASSWORD")
	})
}

func TestUserHandler_UploadProfileImage(t *testing.T) {
	t.Run("passes the sniffed content type and full body", func(t *testing.T) {
		var got services.ImageUpload
		var body []byte
		userSvc := &mockUserService{
			setProfileImageFn: func(userID string, upload services.ImageUpload) (*models.User, error) {
				got = upload
				body, _ = io.ReadAll(upload.Body)
				return &models.User{Base: models.Base{ID: userID}, ProfilePicURL: "/uploads/x.png", ProfilePicID: "x"}, nil
			},
		}
		r := setupUserRouter(NewUserHandler(userSvc, &mockAuditService{}))

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, multipartRequest(t, "profilePicture", "avatar.png", pngHeader))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.ContentType != "image/png" {
			t.Errorf("expected image/png, got %q", got.ContentType)
		}
		if got.Filename != "avatar.png" || got.Size != int64(len(pngHeader)) {
			t.Errorf("unexpected upload metadata %+v", got)
		}
		if !bytes.Equal(body, pngHeader) {
			t.Error("expected the complete file to reach the service")
		}
		user := parseJSON(t, rec)["user"].(map[string]interface{})
		if user["profilePicUrl"] != "/uploads/x.png" {
			t.Errorf("unexpected profilePicUrl %v", user["profilePicUrl"])
		}
	})

	t.Run("returns 400 without a file", func(t *testing.T) {
		r := setupUserRouter(NewUserHandler(&mockUserService{}, &mockAuditService{}))

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, multipartRequest(t, "", "", nil))

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertMessage(t, parseJSON(t, rec), "No image file uploaded")
	})

	t.Run("labels text uploads as non-image", func(t *testing.T) {
		var got string
		userSvc := &mockUserService{
			setProfileImageFn: func(_ string, upload services.ImageUpload) (*models.User, error) {
				got = upload.ContentType
				return nil, apperrors.ErrUnsupportedImage
			},
		}
		r := setupUserRouter(NewUserHandler(userSvc, &mockAuditService{}))

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, multipartRequest(t, "profilePicture", "avatar.png", []byte("just some text")))

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if got != "text/plain; charset=utf-8" {
			t.Errorf("expected sniffed text type, got %q", got)
		}
	})

	t.Run("returns 500 on storage failure", func(t *testing.T) {
		userSvc := &mockUserService{
			setProfileImageFn: func(string, services.ImageUpload) (*models.User, error) {
				return nil, apperrors.ErrStorageFailed
			},
		}
		r := setupUserRouter(NewUserHandler(userSvc, &mockAuditService{}))

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, multipartRequest(t, "profilePicture", "avatar.png", pngHeader))

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
		assertMessage(t, parseJSON(t, rec), "Failed to upload profile picture")
	})
}

func TestUserHandler_DeleteProfileImage(t *testing.T) {
	t.Run("returns the cleared user", func(t *testing.T) {
		userSvc := &mockUserService{
			deleteProfileImageFn: func(userID string) (*models.User, error) {
				return &models.User{Base: models.Base{ID: userID}}, nil
			},
		}
		r := setupUserRouter(NewUserHandler(userSvc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/user/delete-profile-image", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		user := parseJSON(t, rec)["user"].(map[string]interface{})
		if _, ok := user["profilePicUrl"]; ok {
			t.Error("expected profilePicUrl to be omitted")
		}
	})

	t.Run("returns 400 when there is no image", func(t *testing.T) {
		userSvc := &mockUserService{
			deleteProfileImageFn: func(string) (*models.User, error) {
				return nil, apperrors.ErrNoImageToDelete
			},
		}
		r := setupUserRouter(NewUserHandler(userSvc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/user/delete-profile-image", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertMessage(t, parseJSON(t, rec), "No profile image to delete")
	})
}
