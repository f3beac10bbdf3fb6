package statement

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

// mockObjectReader is a mock implementation of ObjectReader
type mockObjectReader struct {
	data   []byte
	err    error
	bucket string
	object string
}

func (m *mockObjectReader) ReadObject(ctx context.Context, bucket, object string) ([]byte, error) {
	m.bucket = bucket
	m.object = object
	if m.err != nil {
		return nil, m.err
	}
	return m.data, nil
}

var _ = Describe("LocatorFetcher", func() {
	var (
		storage *mockStorage
		objects *mockObjectReader
		fetcher *LocatorFetcher
		server  *ghttp.Server
		locator string
		data    []byte
		err     error
	)

	BeforeEach(func() {
		storage = newMockStorage()
		objects = &mockObjectReader{data: []byte("%PDF-gcs")}
		fetcher = NewLocatorFetcher(storage, objects)
		server = ghttp.NewServer()
	})

	AfterEach(func() {
		server.Close()
	})

	JustBeforeEach(func() {
		data, err = fetcher.Fetch(context.Background(), locator)
	})

	When("the locator is an http URL", func() {
		BeforeEach(func() {
			locator = server.URL() + "/statements/jan.pdf"
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodGet, "/statements/jan.pdf"),
				ghttp.RespondWith(http.StatusOK, "%PDF-remote"),
			))
		})

		It("should download the document", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal("%PDF-remote"))
		})
	})

	When("the server does not return 200", func() {
		BeforeEach(func() {
			locator = server.URL() + "/missing.pdf"
			server.AppendHandlers(ghttp.RespondWith(http.StatusNotFound, "not found"))
		})

		It("should return ErrFetch with the status", func() {
			Expect(err).To(MatchError(ErrFetch))
			Expect(err).To(MatchError(ContainSubstring("unexpected status 404")))
		})
	})

	When("the locator is a gs:// URI", func() {
		BeforeEach(func() {
			locator = "gs://statements-bucket/2024/jan.pdf"
		})

		It("should read the object from the bucket", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal("%PDF-gcs"))
			Expect(objects.bucket).To(Equal("statements-bucket"))
			Expect(objects.object).To(Equal("2024/jan.pdf"))
		})
	})

	When("the gs:// URI has no object", func() {
		BeforeEach(func() {
			locator = "gs://statements-bucket"
		})

		It("should return ErrFetch", func() {
			Expect(err).To(MatchError(ErrFetch))
			Expect(err).To(MatchError(ContainSubstring("invalid GCS URI")))
		})
	})

	When("the bucket read fails", func() {
		var readErr error

		BeforeEach(func() {
			locator = "gs://statements-bucket/jan.pdf"
			readErr = errors.New("permission denied")
			objects.err = readErr
		})

		It("should wrap the cause", func() {
			Expect(err).To(MatchError(ErrFetch))
			Expect(err).To(MatchError(readErr))
		})
	})

	When("the locator names local storage", func() {
		BeforeEach(func() {
			storage.files["1-jan.pdf"] = []byte("%PDF-local")
			locator = "local:1-jan.pdf"
		})

		It("should read the stored file", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal("%PDF-local"))
		})
	})

	When("the scheme is unsupported", func() {
		BeforeEach(func() {
			locator = "ftp://example.com/jan.pdf"
		})

		It("should return ErrFetch", func() {
			Expect(err).To(MatchError(ErrFetch))
			Expect(err).To(MatchError(ContainSubstring(`unsupported locator scheme "ftp"`)))
		})
	})
})

var _ = Describe("DecodeInline", func() {
	encoded := base64.StdEncoding.EncodeToString([]byte("%PDF-1.7 inline"))

	It("should decode a data URI and report its media type", func() {
		data, mimeType, err := DecodeInline("data:application/pdf;base64," + encoded)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal("%PDF-1.7 inline"))
		Expect(mimeType).To(Equal("application/pdf"))
	})

	It("should decode bare base64", func() {
		data, mimeType, err := DecodeInline(encoded)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal("%PDF-1.7 inline"))
		Expect(mimeType).To(BeEmpty())
	})

	It("should ignore whitespace and missing padding", func() {
		wrapped := encoded[:10] + "\n" + encoded[10:]
		unpadded := base64.RawStdEncoding.EncodeToString([]byte("%PDF-1.7 inline"))
		for _, payload := range []string{wrapped, unpadded} {
			data, _, err := DecodeInline(payload)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal("%PDF-1.7 inline"))
		}
	})

	DescribeTable("rejecting payloads",
		func(payload string) {
			_, _, err := DecodeInline(payload)
			Expect(err).To(MatchError(ErrDecode))
		},
		Entry("empty", "   "),
		Entry("not base64", "***"),
		Entry("data URI without base64 marker", "data:application/pdf,%PDF"),
		Entry("data URI without a comma", "data:application/pdf;base64"),
	)
})
