package ollama_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/crmchat/pkg/llm"
	"github.com/papercomputeco/crmchat/pkg/llm/provider/ollama"
)

var _ = Describe("Generator", func() {
	It("calls /api/chat without streaming", func() {
		var received map[string]any
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/api/chat"))
			Expect(json.NewDecoder(r.Body).Decode(&received)).To(Succeed())
			_, _ = w.Write([]byte(`{"model":"llama3.2","message":{"role":"assistant","content":"pronto"},"done":true}`))
		}))
		defer server.Close()

		g := ollama.New(ollama.Config{BaseURL: server.URL})
		out, err := g.Generate(context.Background(), []llm.Message{llm.User("ciao")})
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("pronto"))
		Expect(received["stream"]).To(BeFalse())
		Expect(received["model"]).To(Equal(ollama.DefaultModel))
	})

	It("surfaces server errors", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model not found", http.StatusNotFound)
		}))
		defer server.Close()

		_, err := ollama.New(ollama.Config{BaseURL: server.URL}).Generate(context.Background(), []llm.Message{llm.User("x")})
		Expect(err).To(MatchError(llm.ErrGeneration))
		Expect(err.Error()).To(ContainSubstring("404"))
	})
})
