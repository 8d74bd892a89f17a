package reader

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/novelcipher/internal/api"
	"github.com/starford/novelcipher/internal/apperr"
	"github.com/starford/novelcipher/internal/chapter"
	"github.com/starford/novelcipher/internal/cipher"
	"github.com/starford/novelcipher/internal/metrics"
	"github.com/starford/novelcipher/internal/protect"
	"github.com/starford/novelcipher/internal/protect/dom"
	nctest "github.com/starford/novelcipher/internal/testutil"
)

const story = "It was a dark and stormy night.\n\nThe lamp flickered.\n\nSomeone knocked."

func sealedService(t *testing.T) (*chapter.Service, *cipher.Service) {
	t.Helper()
	_, store := nctest.TestVault(t)
	c := nctest.Cipher(t)
	svc := chapter.NewService(store, nctest.TestDB(t), chapter.WithCipher(c), chapter.WithLogger(nctest.Logger()))
	ctx := context.Background()
	_, err := svc.Seal(ctx, chapter.Draft{Number: 1, Title: "Storm"}, story)
	require.NoError(t, err)
	_, err = svc.Seal(ctx, chapter.Draft{Number: 2, Title: "Knock"}, "Second chapter.")
	require.NoError(t, err)
	return svc, c
}

func TestOpen_RendersProtectedParagraphs(t *testing.T) {
	svc, c := sealedService(t)
	doc := dom.NewDocument()
	p := New(ServiceSource{Service: svc}, c, doc, WithLogger(nctest.Logger()))

	page, err := p.Open(context.Background(), 1)
	require.NoError(t, err)
	require.NoError(t, page.Err)

	assert.Equal(t, "Storm", page.Title)
	assert.Equal(t, 2, page.Next)
	assert.Equal(t, 0, page.Prev)
	assert.Equal(t, []string{
		"It was a dark and stormy night.",
		"The lamp flickered.",
		"Someone knocked.",
	}, page.Paragraphs)

	region := page.Region
	assert.True(t, dom.HasClass(region, ClassContent))
	assert.True(t, dom.HasClass(region, protect.ClassProtected))
	assert.True(t, dom.HasClass(region, protect.ClassNoSelect))
	assert.Equal(t, "none", dom.StyleValue(region, "user-select"))
	assert.Equal(t, region, doc.FirstByClass(ClassContent))

	html, err := p.HTML()
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(html, `<p class="mb-4">`))
}

func TestOpen_CopyInsideRegionCancelled(t *testing.T) {
	svc, c := sealedService(t)
	doc := dom.NewDocument()
	p := New(ServiceSource{Service: svc}, c, doc)

	page, err := p.Open(context.Background(), 1)
	require.NoError(t, err)

	para := page.Region.FirstChild
	assert.False(t, doc.Dispatch(dom.NewEvent(protect.EventCopy, para)), "copy should be cancelled")
	assert.False(t, doc.Dispatch(dom.NewKeyDown(para, "c", true, false)), "ctrl+c should be cancelled")
	assert.False(t, doc.Dispatch(dom.NewEvent(protect.EventSelectStart, para)), "selection should be cancelled")
}

func TestOpen_GlobalGuardsInstalledOnce(t *testing.T) {
	svc, c := sealedService(t)
	doc := dom.NewDocument()
	p := New(ServiceSource{Service: svc}, c, doc)

	ctx := context.Background()
	_, err := p.Open(ctx, 1)
	require.NoError(t, err)
	_, err = p.Open(ctx, 2)
	require.NoError(t, err)

	assert.Equal(t, 1, doc.ListenerCount(protect.EventKeyDown))
	assert.Equal(t, 1, doc.ListenerCount(protect.EventSelectStart))
	assert.Equal(t, 1, doc.ListenerCount(protect.EventContextMenu))
}

func TestOpen_PipelinesShareDocumentGuards(t *testing.T) {
	svc, c := sealedService(t)
	doc := dom.NewDocument()
	left := New(ServiceSource{Service: svc}, c, doc)
	right := New(ServiceSource{Service: svc}, c, doc)

	ctx := context.Background()
	_, err := left.Open(ctx, 1)
	require.NoError(t, err)
	_, err = right.Open(ctx, 2)
	require.NoError(t, err)

	assert.Equal(t, 1, doc.ListenerCount(protect.EventKeyDown))
	assert.Equal(t, 1, doc.ListenerCount(protect.EventSelectStart))
}

func TestOpen_MountAndPolicy(t *testing.T) {
	svc, c := sealedService(t)
	doc := dom.NewDocument()
	mount := dom.Element("main")
	doc.Append(doc.Body(), mount)

	policy := protect.DefaultPolicy()
	policy.ProtectedClass = "sealed-text"
	enforcer := dom.NewEnforcer(doc, protect.WithPolicy(policy))

	p := New(ServiceSource{Service: svc}, c, doc, WithMount(mount), WithEnforcer(enforcer))
	page, err := p.Open(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, mount, page.Region.Parent)
	assert.True(t, dom.HasClass(page.Region, "sealed-text"))
	assert.False(t, dom.HasClass(page.Region, protect.ClassProtected))

	ev := dom.NewEvent(protect.EventCopy, page.Region.FirstChild)
	assert.False(t, doc.Dispatch(ev), "copy inside custom-policy region is cancelled")
	assert.False(t, doc.Dispatch(dom.NewEvent(protect.EventSelectStart, page.Region.FirstChild)))
}

func TestOpen_ReplacesPreviousRegion(t *testing.T) {
	svc, c := sealedService(t)
	doc := dom.NewDocument()
	p := New(ServiceSource{Service: svc}, c, doc)

	ctx := context.Background()
	first, err := p.Open(ctx, 1)
	require.NoError(t, err)
	second, err := p.Open(ctx, 2)
	require.NoError(t, err)

	assert.Nil(t, first.Region.Parent)
	assert.Equal(t, doc.Body(), second.Region.Parent)
	assert.Equal(t, []string{"Second chapter."}, second.Paragraphs)
}

func TestOpen_WrongKeyRendersPlaceholder(t *testing.T) {
	svc, _ := sealedService(t)
	km, err := cipher.NewKeyMaterial("fedcba9876543210fedcba9876543210", "0000111122223333", false)
	require.NoError(t, err)
	wrong := cipher.New(cipher.StaticKeys(km), cipher.WithLogger(nctest.Logger()))

	before := testutil.ToFloat64(metrics.OpenFailures.WithLabelValues(metrics.StageDecrypt))
	p := New(ServiceSource{Service: svc}, wrong, dom.NewDocument(), WithLogger(nctest.Logger()))
	page, err := p.Open(context.Background(), 2)
	require.NoError(t, err)

	if page.Err != nil {
		assert.ErrorIs(t, page.Err, cipher.ErrDecrypt)
		assert.Equal(t, []string{cipher.DecryptSentinel}, page.Paragraphs)
		assert.Equal(t, before+1, testutil.ToFloat64(metrics.OpenFailures.WithLabelValues(metrics.StageDecrypt)))
	} else {
		// CBC without a MAC can decode to valid garbage under a wrong key.
		assert.NotEqual(t, []string{"Second chapter."}, page.Paragraphs)
	}
	assert.True(t, dom.HasClass(page.Region, protect.ClassNoSelect), "placeholder is still guarded")
}

func TestOpen_NotFound(t *testing.T) {
	svc, c := sealedService(t)
	doc := dom.NewDocument()
	p := New(ServiceSource{Service: svc}, c, doc)

	_, err := p.Open(context.Background(), 99)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Nil(t, doc.FirstByClass(ClassContent))
}

func TestHTTPSource(t *testing.T) {
	svc, c := sealedService(t)
	r := chi.NewRouter()
	r.Mount("/api", api.NewRouter(svc, api.RouterConfig{}))
	srv := httptest.NewServer(r)
	defer srv.Close()

	src := &HTTPSource{BaseURL: srv.URL + "/", Client: srv.Client()}
	p := New(src, c, dom.NewDocument())

	page, err := p.Open(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, page.Paragraphs, 3)

	_, err = src.Fetch(context.Background(), 42)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestFontSize(t *testing.T) {
	assert.Equal(t, FontLarge, FontMedium.Larger())
	assert.Equal(t, FontXLarge, FontXLarge.Larger())
	assert.Equal(t, FontSmall, FontSmall.Smaller())
	assert.Equal(t, "text-xl", FontSize("unknown").Class())

	svc, c := sealedService(t)
	p := New(ServiceSource{Service: svc}, c, dom.NewDocument(), WithFontSize(FontSmall))
	page, err := p.Open(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, dom.HasClass(page.Region, "text-base"))

	p.SetFontSize(FontLarge)
	assert.False(t, dom.HasClass(page.Region, "text-base"))
	assert.True(t, dom.HasClass(page.Region, "text-2xl"))
	assert.Equal(t, FontLarge, p.FontSize())
}
