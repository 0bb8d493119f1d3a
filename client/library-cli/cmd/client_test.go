package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFakeServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/books", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"books": []map[string]string{{"id": "b1", "title": "Dune", "author": "Herbert"}},
			})
		case http.MethodPost:
			f, header, err := r.FormFile("file")
			require.NoError(t, err)
			content, _ := io.ReadAll(f)
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"book": map[string]string{
				"id":        "b2",
				"title":     r.FormValue("title"),
				"author":    r.FormValue("author"),
				"file_path": header.Filename + ":" + string(content),
			}})
		}
	})
	mux.HandleFunc("/api/v1/books/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/books/b1" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Book not found"}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":true}`))
	})
	mux.HandleFunc("/api/v1/chat", func(w http.ResponseWriter, r *http.Request) {
		var p chatPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		if p.BookID == "limited" {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"message":"Too many requests. Please try again later."}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"response": p.Message + "|" + p.BookID})
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Authentication required"}`))
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClientListAndUpload(t *testing.T) {
	c := newAPIClient(newFakeServer(t).URL+"/", "tok")

	books, err := c.listBooks(context.Background())
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "Dune", books[0].Title)

	b, err := c.uploadBook(context.Background(), "/tmp/emma.txt", []byte("Matchmaking."), "Emma", "Austen")
	require.NoError(t, err)
	assert.Equal(t, "b2", b.ID)
	assert.Equal(t, "Austen", b.Author)
	assert.Equal(t, "emma.txt:Matchmaking.", b.FilePath)
}

func TestClientDelete(t *testing.T) {
	c := newAPIClient(newFakeServer(t).URL, "tok")
	require.NoError(t, c.deleteBook(context.Background(), "b1"))

	err := c.deleteBook(context.Background(), "nope")
	var apiErr *apiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "Book not found", apiErr.Message)
}

func TestClientChatAndErrors(t *testing.T) {
	srv := newFakeServer(t)

	answer, err := newAPIClient(srv.URL, "tok").chat(context.Background(), chatPayload{Message: "hi", BookID: "b1"})
	require.NoError(t, err)
	assert.Equal(t, "hi|b1", answer)

	_, err = newAPIClient(srv.URL, "tok").chat(context.Background(), chatPayload{Message: "hi", BookID: "limited"})
	assert.EqualError(t, err, "Too many requests. Please try again later. (HTTP 429)")

	_, err = newAPIClient(srv.URL, "wrong").listBooks(context.Background())
	assert.EqualError(t, err, "Authentication required (HTTP 401)")
}

func TestAskCommand(t *testing.T) {
	srv := newFakeServer(t)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"ask", "--server", srv.URL, "--token", "tok", "what", "next?"})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		askBookID = ""
	})

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "what next?|\n", out.String())
}
