package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/crmchat/api"
	"github.com/papercomputeco/crmchat/pkg/documents"
	"github.com/papercomputeco/crmchat/pkg/embedcache"
	"github.com/papercomputeco/crmchat/pkg/engine"
	"github.com/papercomputeco/crmchat/pkg/logger"
	testutils "github.com/papercomputeco/crmchat/pkg/utils/test"
)

func newEngine(ctx context.Context, gen *testutils.MockGenerator) *engine.Engine {
	dir := GinkgoT().TempDir()
	docs := filepath.Join(dir, "documents")
	Expect(os.MkdirAll(docs, 0o755)).To(Succeed())
	Expect(os.WriteFile(filepath.Join(docs, "anemoi.txt"), []byte("Anemoi copre grandine e vento."), 0o644)).To(Succeed())
	Expect(os.WriteFile(filepath.Join(docs, "casa.txt"), []byte("Polizza casa contro incendio."), 0o644)).To(Succeed())

	src, err := documents.NewFileSource(docs)
	Expect(err).NotTo(HaveOccurred())

	eng, err := engine.New(ctx, engine.Options{
		Builder: &engine.Builder{
			Source:   src,
			Embedder: testutils.NewMockEmbedder(),
			Cache:    embedcache.NewFileStore(filepath.Join(dir, "embeddings_cache.json")),
			Logger:   logger.Nop(),
		},
		Generator: gen,
		Logger:    logger.Nop(),
	})
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(eng.Close)
	return eng
}

func do(s *api.Server, req *http.Request) (int, map[string]any) {
	resp, err := s.App().Test(req, -1)
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())

	var out map[string]any
	if len(body) > 0 && body[0] == '{' {
		Expect(json.Unmarshal(body, &out)).To(Succeed())
	}
	return resp.StatusCode, out
}

func postChatbot(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/chatbot", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

var _ = Describe("Server", func() {
	var (
		gen    *testutils.MockGenerator
		server *api.Server
	)

	BeforeEach(func(ctx SpecContext) {
		gen = testutils.NewMockGenerator()
		var err error
		server, err = api.NewServer(api.Config{Logger: logger.Nop(), MCP: true}, newEngine(ctx, gen))
		Expect(err).NotTo(HaveOccurred())
	})

	It("requires an engine", func() {
		_, err := api.NewServer(api.Config{}, nil)
		Expect(err).To(MatchError("engine is required"))
	})

	Describe("GET /ping", func() {
		It("answers pong", func() {
			resp, err := server.App().Test(httptest.NewRequest(http.MethodGet, "/ping", nil))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			body, _ := io.ReadAll(resp.Body)
			Expect(string(body)).To(Equal(`"pong"`))
		})
	})

	Describe("POST /chatbot", func() {
		It("returns the generator reply verbatim", func() {
			gen.Reply = "<response>Sì, la grandine è coperta.</response>"

			status, body := do(server, postChatbot(`{"question":"Anemoi copre la grandine?"}`))
			Expect(status).To(Equal(http.StatusOK))
			Expect(body).To(Equal(map[string]any{"answer": "<response>Sì, la grandine è coperta.</response>"}))
			Expect(gen.Requests()).To(HaveLen(1))
		})

		It("rejects malformed JSON", func() {
			status, body := do(server, postChatbot(`{"question":`))
			Expect(status).To(Equal(http.StatusBadRequest))
			Expect(body["error"]).To(ContainSubstring("invalid request body"))
			Expect(gen.Requests()).To(BeEmpty())
		})

		It("rejects a non-string question", func() {
			status, _ := do(server, postChatbot(`{"question":42}`))
			Expect(status).To(Equal(http.StatusBadRequest))
		})

		DescribeTable("rejects a blank question",
			func(body string) {
				status, out := do(server, postChatbot(body))
				Expect(status).To(Equal(http.StatusBadRequest))
				Expect(out["error"]).To(Equal("question is required"))
			},
			Entry("missing", `{}`),
			Entry("empty", `{"question":""}`),
			Entry("whitespace", `{"question":"   "}`),
		)

		It("maps generation failures to 500 with the description", func() {
			gen.Err = errors.New("rate limit reached")

			status, body := do(server, postChatbot(`{"question":"Cosa copre Anemoi?"}`))
			Expect(status).To(Equal(http.StatusInternalServerError))
			Expect(body["error"]).To(ContainSubstring("rate limit reached"))
		})
	})

	Describe("GET /chatbot/index", func() {
		It("reports the startup build", func() {
			status, body := do(server, httptest.NewRequest(http.MethodGet, "/chatbot/index", nil))
			Expect(status).To(Equal(http.StatusOK))
			Expect(body["documents"]).To(BeEquivalentTo(2))
			Expect(body["updated"]).To(BeEquivalentTo(2))
			Expect(body["reused"]).To(BeEquivalentTo(0))
			Expect(body["top_k"]).To(BeEquivalentTo(2))
			Expect(body["embedding_model"]).To(Equal("mock-embedding"))
			Expect(body["chat_model"]).To(Equal("mock-chat"))
		})
	})

	Describe("CORS", func() {
		It("allows any origin by default", func() {
			req := httptest.NewRequest(http.MethodOptions, "/chatbot", nil)
			req.Header.Set("Origin", "https://crm.example.com")
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)

			resp, err := server.App().Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
		})
	})

	It("renders unknown routes as JSON errors", func() {
		status, body := do(server, httptest.NewRequest(http.MethodGet, "/nope", nil))
		Expect(status).To(Equal(http.StatusNotFound))
		Expect(body).To(HaveKey("error"))
	})

	It("mounts the MCP endpoint", func() {
		req := httptest.NewRequest(http.MethodGet, "/mcp", nil)
		resp, err := server.App().Test(req)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).NotTo(Equal(http.StatusNotFound))
	})
})
