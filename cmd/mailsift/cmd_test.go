// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"

	"github.com/siemens/mailsift/config"

	"github.com/sirupsen/logrus"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/thediveo/success"
)

// run executes the mailsift command with the specified arguments, returning
// its output and error.
func run(args ...string) (string, error) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.Execute()
	return out.String(), err
}

var _ = Describe("mailsift command", func() {

	var tmpdir string
	var logfile string

	BeforeEach(func() {
		tmpdir = GinkgoT().TempDir()
		logfile = filepath.Join(tmpdir, "mailsift.log")
		DeferCleanup(func() {
			logrus.SetOutput(GinkgoWriter)
			logrus.SetLevel(logrus.InfoLevel)
		})
	})

	It("calls os.Exit on failure", func() {
		defer func(old func(int)) { osExit = old }(osExit)
		defer func(old []string) { os.Args = old }(os.Args)
		var code int
		osExit = func(c int) { code = c }
		os.Args = []string{"mailsift", "--workers", "0", "check", "a@b.c"}
		main()
		Expect(code).To(Equal(1))
	})

	It("rejects invalid settings", func() {
		_, err := run("--log-file", logfile, "--workers", "501", "check", "a@b.c")
		Expect(err).To(MatchError(ContainSubstring("workers must be between")))
		_, err = run("--log-file", logfile, "--spinner", "1ms", "check", "a@b.c")
		Expect(err).To(MatchError(ContainSubstring("--spinner")))
	})

	It("verifies a list and writes its result lists", func() {
		list := filepath.Join(tmpdir, "emails.txt")
		Expect(os.WriteFile(list, []byte("not-an-email\n\nbroken@\r\n"), 0o600)).To(Succeed())
		outdir := filepath.Join(tmpdir, "out")

		out := Successful(run("--log-file", logfile, "--debug",
			"verify", "--progress=false", "--out", outdir, list))
		Expect(out).To(ContainSubstring("Total addresses: 3\n"))
		Expect(out).To(ContainSubstring("syntax: 3\n"))
		Expect(out).To(ContainSubstring("valid: no results\n"))
		Expect(out).To(ContainSubstring("wrote syntax.txt\n"))

		syntaxlist := string(Successful(os.ReadFile(filepath.Join(outdir, "syntax.txt"))))
		Expect(syntaxlist).To(HaveSuffix("\n"))
		Expect(strings.Split(strings.TrimSuffix(syntaxlist, "\n"), "\n")).
			To(ConsistOf("not-an-email", "", "broken@"))
		Expect(filepath.Join(outdir, "valid.txt")).NotTo(BeAnExistingFile())
		Expect(logfile).To(BeAnExistingFile())
	})

	It("verifies a list from stdin", func() {
		outdir := filepath.Join(tmpdir, "out")
		cmd := newRootCmd()
		var out bytes.Buffer
		cmd.SetIn(strings.NewReader("a\nb\n"))
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"--log-file", logfile, "verify", "--progress=false", "--out", outdir, "-"})
		Expect(cmd.Execute()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("syntax: 2\n"))
		Expect(filepath.Join(outdir, "syntax.txt")).To(BeARegularFile())
	})

	It("reports missing lists", func() {
		_, err := run("--log-file", logfile, "verify", filepath.Join(tmpdir, "nada.txt"))
		Expect(err).To(MatchError(ContainSubstring("cannot open address list")))
	})

	It("checks single malformed addresses locally", func() {
		out := Successful(run("--log-file", logfile, "check", "not-an-email"))
		Expect(out).To(ContainSubstring("not-an-email: "))
		Expect(out).To(ContainSubstring("syntax"))
	})

	When("using ZeroBounce", func() {

		var srv *httptest.Server

		BeforeEach(func() {
			old, ok := os.LookupEnv(config.EnvZeroBounceAPIKey)
			DeferCleanup(func() {
				if ok {
					_ = os.Setenv(config.EnvZeroBounceAPIKey, old)
					return
				}
				_ = os.Unsetenv(config.EnvZeroBounceAPIKey)
			})
			Expect(os.Unsetenv(config.EnvZeroBounceAPIKey)).To(Succeed())

			srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Query().Get("api_key") != "s3cr3t" {
					_, _ = w.Write([]byte(`{"error":"Invalid API Key"}`))
					return
				}
				_, _ = w.Write([]byte(`{"address":"` + r.URL.Query().Get("email") + `","status":"valid"}`))
			}))
			DeferCleanup(srv.Close)
		})

		It("checks single addresses", func() {
			envfile := filepath.Join(tmpdir, ".env")
			Expect(os.WriteFile(envfile, []byte("ZEROBOUNCE_API_KEY=s3cr3t\n"), 0o600)).To(Succeed())
			out := Successful(run("--log-file", logfile, "--env-file", envfile,
				"check", "--backend", "zerobounce", "--zerobounce-url", srv.URL, "jane@example.com"))
			Expect(out).To(Equal("jane@example.com is valid.\n"))
		})

		It("reports API errors", func() {
			envfile := filepath.Join(tmpdir, ".env")
			Expect(os.WriteFile(envfile, []byte("ZEROBOUNCE_API_KEY=wrong\n"), 0o600)).To(Succeed())
			_, err := run("--log-file", logfile, "--env-file", envfile,
				"check", "--backend", "zerobounce", "--zerobounce-url", srv.URL, "jane@example.com")
			Expect(err).To(MatchError(ContainSubstring("Invalid API Key")))
		})

		It("prechecks addresses", func() {
			_, err := run("--log-file", logfile,
				"check", "--backend", "zerobounce", "--zerobounce-url", srv.URL, "jane")
			Expect(err).To(MatchError(errNotAnAddress))
		})

	})

	It("rejects unknown backends", func() {
		_, err := run("--log-file", logfile, "check", "--backend", "crystalball", "jane@example.com")
		Expect(err).To(MatchError(ContainSubstring("unknown --backend")))
	})

})
