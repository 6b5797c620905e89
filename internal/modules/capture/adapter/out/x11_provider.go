package out

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"focustrail/internal/modules/capture/domain"
	captureout "focustrail/internal/modules/capture/port/out"
	apperrors "focustrail/internal/platform/errors"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/vova616/screenshot"
)

// X11Provider reads EWMH properties from the root window and grabs the
// active window's rectangle. It has no text recognition.
type X11Provider struct {
	conn *xgb.Conn
	root xproto.Window

	mu    sync.Mutex
	atoms map[string]xproto.Atom
}

func NewX11Provider() (*X11Provider, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("connect x11 display: %w", err)
	}
	setup := xproto.Setup(conn)
	return &X11Provider{
		conn:  conn,
		root:  setup.DefaultScreen(conn).Root,
		atoms: map[string]xproto.Atom{},
	}, nil
}

var _ captureout.Provider = (*X11Provider)(nil)

func (p *X11Provider) Name() string {
	return "x11"
}

func (p *X11Provider) Close() {
	p.conn.Close()
}

func (p *X11Provider) ActiveWindow(ctx context.Context) (*domain.WindowInfo, error) {
	active, err := p.atom("_NET_ACTIVE_WINDOW")
	if err != nil {
		return nil, err
	}
	prop, err := xproto.GetProperty(p.conn, false, p.root, active, xproto.AtomWindow, 0, 1).Reply()
	if err != nil {
		return nil, fmt.Errorf("read active window: %w", err)
	}
	if len(prop.Value) < 4 {
		return nil, nil
	}
	win := xproto.Window(xgb.Get32(prop.Value))
	if win == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info := &domain.WindowInfo{WindowID: uint32(win)}
	info.Title = p.title(win)
	info.Owner = p.owner(win)
	if bounds, err := p.bounds(win); err == nil {
		info.Bounds = bounds
	}
	if p.isShellSurface(win) {
		return info, nil
	}
	info.AppID = p.appID(win)
	return info, nil
}

// CaptureScreenshot returns the window's rectangle as PNG. A window with no
// visible area yields an empty payload.
func (p *X11Provider) CaptureScreenshot(ctx context.Context, windowID uint32) ([]byte, error) {
	b, err := p.bounds(xproto.Window(windowID))
	if err != nil {
		return nil, err
	}
	if b.W <= 0 || b.H <= 0 {
		return nil, nil
	}
	img, err := screenshot.CaptureRect(image.Rect(b.X, b.Y, b.X+b.W, b.Y+b.H))
	if err != nil {
		return nil, fmt.Errorf("grab window rect: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	if err := png.Encode(buf, img); err != nil {
		return nil, fmt.Errorf("encode screenshot: %w", err)
	}
	return buf.Bytes(), nil
}

func (p *X11Provider) RunRecognition(context.Context, []byte) (domain.Recognition, error) {
	return domain.Recognition{}, apperrors.ErrRecognitionUnsupported
}

func (p *X11Provider) atom(name string) (xproto.Atom, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if a, ok := p.atoms[name]; ok {
		return a, nil
	}
	reply, err := xproto.InternAtom(p.conn, true, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, fmt.Errorf("intern atom %s: %w", name, err)
	}
	p.atoms[name] = reply.Atom
	return reply.Atom, nil
}

func (p *X11Provider) property(win xproto.Window, prop xproto.Atom, typ xproto.Atom) []byte {
	reply, err := xproto.GetProperty(p.conn, false, win, prop, typ, 0, 1<<16).Reply()
	if err != nil || reply == nil {
		return nil
	}
	return reply.Value
}

func (p *X11Provider) title(win xproto.Window) string {
	if name, err := p.atom("_NET_WM_NAME"); err == nil {
		if utf8, err := p.atom("UTF8_STRING"); err == nil {
			if v := p.property(win, name, utf8); len(v) > 0 {
				return string(v)
			}
		}
	}
	return string(p.property(win, xproto.AtomWmName, xproto.AtomString))
}

// appID prefers the WM_CLASS class part, which is stable across windows of
// the same application.
func (p *X11Provider) appID(win xproto.Window) string {
	raw := p.property(win, xproto.AtomWmClass, xproto.AtomString)
	parts := strings.Split(strings.TrimRight(string(raw), "\x00"), "\x00")
	for i := len(parts) - 1; i >= 0; i-- {
		if parts[i] != "" {
			return strings.ToLower(parts[i])
		}
	}
	return ""
}

func (p *X11Provider) owner(win xproto.Window) string {
	pidAtom, err := p.atom("_NET_WM_PID")
	if err != nil {
		return ""
	}
	v := p.property(win, pidAtom, xproto.AtomCardinal)
	if len(v) < 4 {
		return ""
	}
	pid := xgb.Get32(v)
	comm, err := os.ReadFile(filepath.Join("/proc", fmt.Sprint(pid), "comm"))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(comm))
}

func (p *X11Provider) isShellSurface(win xproto.Window) bool {
	typeAtom, err := p.atom("_NET_WM_WINDOW_TYPE")
	if err != nil {
		return false
	}
	v := p.property(win, typeAtom, xproto.AtomAtom)
	for i := 0; i+4 <= len(v); i += 4 {
		a := xproto.Atom(xgb.Get32(v[i:]))
		for _, name := range []string{"_NET_WM_WINDOW_TYPE_DESKTOP", "_NET_WM_WINDOW_TYPE_DOCK"} {
			if shell, err := p.atom(name); err == nil && shell == a {
				return true
			}
		}
	}
	return false
}

func (p *X11Provider) bounds(win xproto.Window) (domain.Bounds, error) {
	geom, err := xproto.GetGeometry(p.conn, xproto.Drawable(win)).Reply()
	if err != nil {
		return domain.Bounds{}, fmt.Errorf("window geometry: %w", err)
	}
	abs, err := xproto.TranslateCoordinates(p.conn, win, p.root, 0, 0).Reply()
	if err != nil {
		return domain.Bounds{}, fmt.Errorf("translate coordinates: %w", err)
	}
	return domain.Bounds{X: int(abs.DstX), Y: int(abs.DstY), W: int(geom.Width), H: int(geom.Height)}, nil
}
