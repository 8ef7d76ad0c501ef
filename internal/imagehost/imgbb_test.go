package imagehost

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage() Image {
	return Image{Name: "lunch.jpg", ContentType: "image/jpeg", Data: []byte("\xff\xd8\xff fake jpeg")}
}

func TestImgBBUpload(t *testing.T) {
	t.Run("posts multipart image with key", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "secret", r.URL.Query().Get("key"))

			file, header, err := r.FormFile("image")
			if !assert.NoError(t, err) {
				return
			}
			defer file.Close()
			data, _ := io.ReadAll(file)
			assert.Equal(t, "lunch.jpg", header.Filename)
			assert.Equal(t, testImage().Data, data)

			_, _ = io.WriteString(w, `{"success":true,"data":{"url":"https://i.ibb.co/abc/lunch.jpg"}}`)
		}))
		defer server.Close()

		c := NewImgBB("secret", server.URL, time.Second)
		got, err := c.Upload(context.Background(), testImage())
		require.NoError(t, err)
		assert.Equal(t, "https://i.ibb.co/abc/lunch.jpg", got)
		assert.Equal(t, "imgbb", c.Service())
	})

	t.Run("non-2xx status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":"bad"}`)
		}))
		defer server.Close()

		_, err := NewImgBB("k", server.URL, time.Second).Upload(context.Background(), testImage())
		require.Error(t, err)
		assert.Equal(t, "Image upload failed: Failed to upload image: 400 Bad Request", err.Error())

		var uploadErr *UploadError
		require.True(t, errors.As(err, &uploadErr))
		assert.Equal(t, http.StatusBadRequest, uploadErr.StatusCode)
	})

	t.Run("success false uses provider message", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"success":false,"error":{"message":"Invalid API v1 key."}}`)
		}))
		defer server.Close()

		_, err := NewImgBB("k", server.URL, time.Second).Upload(context.Background(), testImage())
		require.Error(t, err)
		assert.Equal(t, "Image upload failed: Invalid API v1 key.", err.Error())
	})

	t.Run("success false without message", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"success":false}`)
		}))
		defer server.Close()

		_, err := NewImgBB("k", server.URL, time.Second).Upload(context.Background(), testImage())
		require.Error(t, err)
		assert.Equal(t, "Image upload failed: Image upload failed", err.Error())
	})

	t.Run("transport failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close()

		_, err := NewImgBB("k", server.URL, time.Second).Upload(context.Background(), testImage())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Image upload failed: ")
	})
}
