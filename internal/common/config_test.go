package common

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Config", func() {
	var cfg *Config

	BeforeEach(func() {
		cfg = &Config{
			Database: DatabaseConfig{Driver: "sqlite", SQLitePath: "./test.db"},
			Server:   ServerConfig{HTTPAddr: ":8080"},
			OCR:      OCRConfig{Language: "spa+eng"},
		}
	})

	It("accepts a sqlite configuration", func() {
		Expect(cfg.Validate()).To(Succeed())
	})

	It("requires a DSN for postgres", func() {
		cfg.Database.Driver = "postgres"
		cfg.Database.DSN = ""
		Expect(cfg.Validate()).To(MatchError(ErrValidation))

		cfg.Database.DSN = "postgres://localhost/ocr"
		Expect(cfg.Validate()).To(Succeed())
	})

	It("requires a path for sqlite", func() {
		cfg.Database.SQLitePath = ""
		Expect(cfg.Validate()).To(MatchError(ErrValidation))
	})

	It("rejects unknown drivers", func() {
		cfg.Database.Driver = "oracle"
		Expect(cfg.Validate()).To(MatchError(ErrValidation))
	})

	It("requires a listen address", func() {
		cfg.Server.HTTPAddr = ""
		Expect(cfg.Validate()).To(MatchError(ErrValidation))
	})

	It("loads defaults from an empty environment", func() {
		loaded := LoadConfig()
		Expect(loaded.Database.Driver).NotTo(BeEmpty())
		Expect(loaded.OCR.Language).To(Equal("spa+eng"))
	})
})
