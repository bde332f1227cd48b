package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitcurl/packages/capture"
	"github.com/abdul-hamid-achik/hitcurl/packages/http"
	"github.com/abdul-hamid-achik/hitcurl/packages/import/curl"
	"github.com/abdul-hamid-achik/hitcurl/packages/output"
)

var (
	execMethodFlag         string
	execHeaderFlags        []string
	execDataFlags          []string
	execFormFlags          []string
	execCookieFlags        []string
	execCookieJarFlag      string
	execUserFlag           string
	execAuthFlag           string
	execInsecureFlag       bool
	execLocationFlag       bool
	execNoLocationFlag     bool
	execMaxRedirsFlag      int
	execConnectTimeoutFlag float64
	execMaxTimeFlag        float64
	execFailFlag           bool
	execHeadFlag           bool
	execIncludeFlag        bool
	execCompressedFlag     bool
	execEncodingFlag       string
	execCaptureFlags       []string
)

var execCmd = &cobra.Command{
	Use:   "exec <url>",
	Short: "Execute a request described by flags",
	Long: `Execute a single request. Flags mirror curl's where they overlap; values
from the config file apply first and flags override them.

Examples:
  hitcurl exec https://api.example.com/users
  hitcurl exec -X POST -d name=widget -d size=2 https://api.example.com/items
  hitcurl exec -H 'Content-Type: application/json' -d '{"name":"widget"}' https://api.example.com/items
  hitcurl exec -u admin:secret --auth digest https://api.example.com/admin
  hitcurl exec --capture token=body:auth.token https://api.example.com/login`,
	Args: usageArgs(cobra.ExactArgs(1)),
	RunE: execCommand,
}

func init() {
	f := execCmd.Flags()
	f.StringVarP(&execMethodFlag, "request", "X", "", "Request method")
	f.StringArrayVarP(&execHeaderFlags, "header", "H", nil, "Request header 'Name: value' (repeatable)")
	f.StringArrayVarP(&execDataFlags, "data", "d", nil, "Post data sent as is, joined with & (repeatable)")
	f.StringArrayVarP(&execFormFlags, "form", "F", nil, "Multipart field name=value, name=@file uploads a file (repeatable)")
	f.StringArrayVarP(&execCookieFlags, "cookie", "b", nil, "Cookie name=value, or a cookie file to read (repeatable)")
	f.StringVarP(&execCookieJarFlag, "cookie-jar", "c", "", "Cookie jar file, read before and written after the transfer")
	f.StringVarP(&execUserFlag, "user", "u", "", "Credentials user:password")
	f.StringVar(&execAuthFlag, "auth", "", "Auth scheme: basic, digest, ntlm, negotiate, any, anysafe")
	f.BoolVarP(&execInsecureFlag, "insecure", "k", false, "Skip certificate verification")
	f.BoolVarP(&execLocationFlag, "location", "L", false, "Follow redirects")
	f.BoolVar(&execNoLocationFlag, "no-location", false, "Do not follow redirects")
	f.IntVar(&execMaxRedirsFlag, "max-redirs", -1, "Maximum redirects, -1 for unlimited")
	f.Float64Var(&execConnectTimeoutFlag, "connect-timeout", 0, "Connect timeout in seconds")
	f.Float64VarP(&execMaxTimeFlag, "max-time", "m", 0, "Transfer timeout in seconds")
	f.BoolVarP(&execFailFlag, "fail", "f", false, "Fail on HTTP status 400 and above")
	f.BoolVarP(&execHeadFlag, "head", "I", false, "Send HEAD, skip the body")
	f.BoolVarP(&execIncludeFlag, "include", "i", false, "Prepend response headers to the body")
	f.BoolVar(&execCompressedFlag, "compressed", false, "Accept every supported content encoding")
	f.StringVar(&execEncodingFlag, "encoding", "", "Accept one content encoding: identity, gzip, deflate")
	f.StringArrayVar(&execCaptureFlags, "capture", nil, "Capture name=source:path after the transfer (repeatable)")
}

func execCommand(cmd *cobra.Command, args []string) error {
	captures, err := parseCaptures(execCaptureFlags)
	if err != nil {
		return usageError(err)
	}

	b := http.NewRequestBuilder(builderOptions(cmd)...)
	defer b.Close()

	if err := current.cfg.Apply(b); err != nil {
		return &exitError{code: ExitConfigError, err: err}
	}
	b.SetURL(args[0])

	if err := applyExecFlags(cmd, b); err != nil {
		return usageError(err)
	}

	f := newFormatter(cmd)
	code, err := transfer(cmd.Context(), b, f, "", 0, captures)
	if flushErr := f.Flush(); flushErr != nil && err == nil {
		err = flushErr
	}
	if err != nil {
		return err
	}
	if code != ExitSuccess {
		return &exitError{code: code}
	}
	return nil
}

func applyExecFlags(cmd *cobra.Command, b *http.RequestBuilder) error {
	changed := cmd.Flags().Changed

	parsed := &curl.ParsedCurl{Data: execDataFlags, Form: execFormFlags}
	for _, h := range execHeaderFlags {
		name, value, ok := strings.Cut(h, ":")
		if !ok {
			return fmt.Errorf("invalid header %q, want 'Name: value'", h)
		}
		name, value = strings.TrimSpace(name), strings.TrimSpace(value)
		parsed.Headers = append(parsed.Headers, http.Header{Name: name, Value: value})
		b.AddHeader(name, value)
	}

	for _, c := range execCookieFlags {
		name, value, ok := strings.Cut(c, "=")
		if !ok {
			// a cookie file, read only; missing files are ignored like curl
			if err := b.LoadCookieFile(c); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			continue
		}
		b.AddCookie(strings.TrimSpace(name), value)
	}
	if execCookieJarFlag != "" {
		b.EnableCookieJar(execCookieJarFlag).RemoveCookie(execCookieJarFlag)
	}

	fields, err := parsed.Fields()
	if err != nil {
		return err
	}
	if len(execFormFlags) > 0 {
		b.DisableSafeUpload()
	}

	method := strings.ToUpper(execMethodFlag)
	hasBody := len(execDataFlags) > 0 || len(execFormFlags) > 0
	switch {
	case execHeadFlag && method == "":
		b.DisableFetchBody()
		hasBody = false
	case method == "" && hasBody, method == "POST":
		b.EnablePost(fields)
	case method == "" || (method == "GET" && !hasBody):
	default:
		b.SetCustomMethod(method)
		if fields != nil {
			b.AddPostFields(fields)
		}
	}
	if hasBody && len(execDataFlags) > 0 {
		b.SetPostBody([]byte(parsed.Body()))
	}

	if changed("insecure") {
		b.DisableSSLVerify()
	}
	if changed("location") {
		b.EnableFollowRedirects()
	}
	if changed("no-location") {
		b.DisableFollowRedirects()
	}
	if changed("max-redirs") {
		b.SetMaxRedirects(execMaxRedirsFlag)
	}
	if changed("connect-timeout") {
		b.SetConnectTimeoutMs(int(execConnectTimeoutFlag * 1000))
	}
	if changed("max-time") {
		b.SetTimeoutMs(int(execMaxTimeFlag * 1000))
	}
	if execFailFlag {
		b.EnableFailOnError()
	}
	if execIncludeFlag {
		b.EnableIncludeHeader()
	}
	if execCompressedFlag {
		if err := b.SetEncoding(""); err != nil {
			return err
		}
	} else if changed("encoding") {
		if err := b.SetEncoding(execEncodingFlag); err != nil {
			return err
		}
	}

	if execUserFlag != "" {
		user, pass, _ := strings.Cut(execUserFlag, ":")
		b.SetCredentials(user, pass)
	}
	if execAuthFlag != "" {
		scheme, err := http.ParseAuthScheme(execAuthFlag)
		if err != nil {
			return err
		}
		if err := b.SetHTTPAuthScheme(scheme); err != nil {
			return err
		}
	}
	return nil
}

func parseCaptures(exprs []string) ([]capture.Spec, error) {
	specs := make([]capture.Spec, 0, len(exprs))
	for _, expr := range exprs {
		spec, err := capture.ParseSpec(expr)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// transfer executes b once and hands the outcome to f. The returned code
// classifies the transfer; the error is set only when the builder could not
// run at all.
func transfer(ctx context.Context, b *http.RequestBuilder, f output.Formatter, name string, iteration int, captures []capture.Spec) (int, error) {
	if _, err := b.Execute(ctx); err != nil {
		return ExitTransferFailure, err
	}

	result := b.Result()
	report := &output.Report{
		Name:        name,
		Iteration:   iteration,
		Method:      b.MethodName(),
		URL:         b.URL(),
		Result:      result,
		BodyWritten: !b.IsReturnTransfer(),
	}
	if len(captures) > 0 && !result.Failed() {
		report.Captures = capture.ExtractAll(result, captures)
	}
	f.FormatReport(report)

	return transferExitCode(result), nil
}
