package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"reflect"
	"strings"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrembo/urembo/core"
	"github.com/mrembo/urembo/core/chat"
	"github.com/mrembo/urembo/core/lesson"
	"github.com/mrembo/urembo/core/quiz"
	"github.com/mrembo/urembo/core/user"
	emailsvc "github.com/mrembo/urembo/services/email"
	"github.com/mrembo/urembo/storage/cache"
	inmemdb "github.com/mrembo/urembo/storage/database/inmem"
	storagefiles "github.com/mrembo/urembo/storage/files"
)

var errMissingToken = httpErr{Detail: "missing or malformed jwt"}

type testEnv struct {
	server    *Server
	usrSvc    user.Service
	lessonSvc lesson.Service
	quizSvc   quiz.Service
	blacklist cache.TokenBlacklist
	files     lesson.FileStore
	chat      *fakeChatProvider
}

type nopLogger struct{}

func (nopLogger) Enable(bool)                        {}
func (nopLogger) Debug(string, ...interface{})       {}
func (nopLogger) Info(string, ...interface{})        {}
func (nopLogger) Warn(string, ...interface{})        {}
func (nopLogger) Error(string, ...interface{})       {}
func (nopLogger) Fatal(msg string, _ ...interface{}) { panic(msg) }

// fakeChatProvider replays a canned reply in fixed chunks.
type fakeChatProvider struct {
	chunks []string
	err    error
}

func (p *fakeChatProvider) Stream(_ context.Context, _ []chat.Message, w io.Writer) error {
	if p.err != nil {
		return p.err
	}
	for _, chunk := range p.chunks {
		if _, err := io.WriteString(w, chunk); err != nil {
			return err
		}
	}
	return nil
}

func setup(t *testing.T) *testEnv {
	t.Helper()

	core.Conf.Debug = false
	core.Conf.TestMode = true

	logger := nopLogger{}

	// set up DB & repos
	db := inmemdb.NewDB()

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock()
	usrSvc := user.NewService(inmemdb.NewUserRepository(db), mailSvc, logger)

	files, err := storagefiles.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	lessonSvc := lesson.NewService(inmemdb.NewLessonRepository(db), files, logger)

	validate := validator.New()
	translator := newTestTranslator()
	core.InitValidators(validate, translator)
	user.RegisterValidators(validate, translator)

	quizSvc := quiz.NewService(inmemdb.NewQuizRepository(db), validate, logger)

	provider := &fakeChatProvider{chunks: []string{"Hello", ", ", "there!"}}
	chatSvc := chat.NewService(provider, validate, logger)

	blacklist := cache.NewInmemBlacklist()

	server := NewServer(
		&Options{
			DisableReqLogs: true,
			Logger:         logger,
			UserSvc:        usrSvc,
			LessonSvc:      lessonSvc,
			QuizSvc:        quizSvc,
			ChatSvc:        chatSvc,
			Blacklist:      blacklist,
			Files:          files,
			Validate:       validate,
			Translator:     translator,
		},
	)

	return &testEnv{
		server:    server,
		usrSvc:    usrSvc,
		lessonSvc: lessonSvc,
		quizSvc:   quizSvc,
		blacklist: blacklist,
		files:     files,
		chat:      provider,
	}
}

func newTestTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func createUser(t *testing.T, svc user.Service, uname, role string) user.User {
	t.Helper()
	usr, err := svc.Create(context.Background(), user.NewUser{
		FirstName: "Jane",
		LastName:  "Doe",
		Username:  uname,
		Password:  "S3kr!tPa55",
		Role:      role,
	})
	require.NoError(t, err)
	return usr
}

func createLesson(t *testing.T, svc lesson.Service, name string) lesson.Lesson {
	t.Helper()
	les, err := svc.Create(context.Background(), lesson.NewLesson{
		Name:           name,
		ThumbnailImage: uploadFixture("thumb.jpg", "image/jpeg"),
		TheoryFile:     uploadFixture("theory.pdf", "application/pdf"),
	})
	require.NoError(t, err)
	return les
}

func uploadFixture(name, ctype string) *lesson.FileUpload {
	content := "fixture: " + name
	return &lesson.FileUpload{
		Filename:    name,
		ContentType: ctype,
		Size:        int64(len(content)),
		Content:     strings.NewReader(content),
	}
}

type httpErr struct {
	Detail string `json:"detail"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func newFormRequest(method, path string, form url.Values) (*http.Request, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	return req, rec
}

func newMultipartRequest(t *testing.T, path, token string, fields map[string]string, fileFields map[string]fileFixture) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for field, val := range fields {
		require.NoError(t, mw.WriteField(field, val))
	}
	for field, f := range fileFields {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, f.name))
		hdr.Set("Content-Type", f.ctype)
		part, err := mw.CreatePart(hdr)
		require.NoError(t, err)
		_, err = io.WriteString(part, f.content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

type fileFixture struct {
	name    string
	ctype   string
	content string
}

func getToken(t *testing.T, usr user.User) string {
	t.Helper()
	claims := GetUserClaims(usr)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ObjectsAreEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
