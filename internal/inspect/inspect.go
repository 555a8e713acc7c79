// Package inspect serves the state of a simulated machine over HTTP as JSON.
//
// Routes:
//
//	GET  /boot                        boot information and memory map
//	GET  /pmm                         page allocator counters
//	GET  /pmm/frames?from=N&count=N   page bitmap slice as a "0"/"1" string
//	GET  /slab                        SLAB allocator caches
//	GET  /syscall                     system call counters
//	POST /alloc?size=N                library OS malloc
//	POST /free?addr=A&size=N          library OS free
//	POST /allocpg?count=N             page allocation through the syscall interface
//	POST /freepg?addr=A&count=N       page release through the syscall interface
package inspect

import (
	"errors"
	"fmt"
	"strconv"

	jsoniter "github.com/json-iterator/go"
	"github.com/valyala/fasthttp"

	"github.com/joshuapare/exokit/internal/logger"
	"github.com/joshuapare/exokit/internal/machine"
	"github.com/joshuapare/exokit/kernel/multiboot"
	"github.com/joshuapare/exokit/libos/exo"
	"github.com/joshuapare/exokit/mem"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// maxFrames bounds one /pmm/frames response.
const maxFrames = 1 << 16

var errNoLibOS = errors.New("inspect: machine runs without a library OS")

// Server answers introspection requests for one machine.
type Server struct {
	m   *machine.Machine
	sys *exo.Client
}

// New returns a server over m.
func New(m *machine.Machine) *Server {
	return &Server{m: m, sys: exo.NewClient(m.Kernel())}
}

// ListenAndServe serves on addr until the listener fails.
func (s *Server) ListenAndServe(addr string) error {
	srv := &fasthttp.Server{
		Handler: s.Handler,
		Name:    "exokit",
	}
	logger.L.Info("inspect server listening", "addr", addr)
	return srv.ListenAndServe(addr)
}

// Handler routes one request.
func (s *Server) Handler(ctx *fasthttp.RequestCtx) {
	path := string(ctx.Path())
	logger.L.Debug("inspect request", "method", string(ctx.Method()), "path", path)

	switch path {
	case "/boot":
		s.get(ctx, s.boot)
	case "/pmm":
		s.get(ctx, s.pmm)
	case "/pmm/frames":
		s.get(ctx, s.frames)
	case "/slab":
		s.get(ctx, s.slab)
	case "/syscall":
		s.get(ctx, s.syscalls)
	case "/alloc":
		s.post(ctx, s.alloc)
	case "/free":
		s.post(ctx, s.free)
	case "/allocpg":
		s.post(ctx, s.allocpg)
	case "/freepg":
		s.post(ctx, s.freepg)
	default:
		writeError(ctx, fasthttp.StatusNotFound, fmt.Errorf("no route %s", path))
	}
}

type handlerFunc func(ctx *fasthttp.RequestCtx) (any, error)

// badRequest marks errors caused by malformed parameters.
type badRequest struct{ err error }

func (e badRequest) Error() string { return e.err.Error() }
func (e badRequest) Unwrap() error { return e.err }

func (s *Server) get(ctx *fasthttp.RequestCtx, h handlerFunc) {
	if !ctx.IsGet() {
		writeError(ctx, fasthttp.StatusMethodNotAllowed, fmt.Errorf("%s wants GET", ctx.Path()))
		return
	}
	s.serve(ctx, h)
}

func (s *Server) post(ctx *fasthttp.RequestCtx, h handlerFunc) {
	if !ctx.IsPost() {
		writeError(ctx, fasthttp.StatusMethodNotAllowed, fmt.Errorf("%s wants POST", ctx.Path()))
		return
	}
	s.serve(ctx, h)
}

func (s *Server) serve(ctx *fasthttp.RequestCtx, h handlerFunc) {
	v, err := h(ctx)
	if err != nil {
		var br badRequest
		if errors.As(err, &br) {
			writeError(ctx, fasthttp.StatusBadRequest, err)
			return
		}
		writeError(ctx, fasthttp.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, v)
}

func writeJSON(ctx *fasthttp.RequestCtx, code int, v any) {
	stream := json.BorrowStream(nil)
	defer json.ReturnStream(stream)

	stream.WriteVal(v)
	if stream.Error != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		ctx.SetBodyString(stream.Error.Error())
		return
	}
	ctx.SetStatusCode(code)
	ctx.SetContentType("application/json")
	ctx.SetBody(stream.Buffer())
}

func writeError(ctx *fasthttp.RequestCtx, code int, err error) {
	writeJSON(ctx, code, map[string]string{"error": err.Error()})
}

func uintArg(ctx *fasthttp.RequestCtx, key string) (uint32, error) {
	raw := ctx.QueryArgs().Peek(key)
	if len(raw) == 0 {
		return 0, badRequest{fmt.Errorf("missing %q", key)}
	}
	v, err := strconv.ParseUint(string(raw), 0, 32)
	if err != nil {
		return 0, badRequest{fmt.Errorf("bad %q: %w", key, err)}
	}
	return uint32(v), nil
}

func optionalUintArg(ctx *fasthttp.RequestCtx, key string, def uint32) (uint32, error) {
	if !ctx.QueryArgs().Has(key) {
		return def, nil
	}
	return uintArg(ctx, key)
}

type bootResponse struct {
	Flags          uint32                     `json:"flags"`
	BootLoaderName string                     `json:"boot_loader_name"`
	Cmdline        string                     `json:"cmdline"`
	Regions        []multiboot.MemoryMapEntry `json:"regions"`
}

func (s *Server) boot(*fasthttp.RequestCtx) (any, error) {
	info := s.m.Kernel().Info()
	return bootResponse{
		Flags:          info.Flags,
		BootLoaderName: info.BootLoaderName,
		Cmdline:        info.Cmdline,
		Regions:        info.Regions,
	}, nil
}

func (s *Server) pmm(*fasthttp.RequestCtx) (any, error) {
	return s.m.Kernel().Pages().Stats(), nil
}

type framesResponse struct {
	From  uint32 `json:"from"`
	Count int    `json:"count"`
	Bits  string `json:"bits"`
}

func (s *Server) frames(ctx *fasthttp.RequestCtx) (any, error) {
	from, err := optionalUintArg(ctx, "from", 0)
	if err != nil {
		return nil, err
	}
	count, err := optionalUintArg(ctx, "count", 1024)
	if err != nil {
		return nil, err
	}
	if count > maxFrames {
		return nil, badRequest{fmt.Errorf("count %d above %d", count, maxFrames)}
	}

	bits := make([]byte, 0, count)
	end := uint64(from) + uint64(count)
	s.m.Kernel().Pages().VisitFrames(func(f mem.Frame, used bool) bool {
		if uint64(f) >= end {
			return false
		}
		if uint32(f) < from {
			return true
		}
		if used {
			bits = append(bits, '1')
		} else {
			bits = append(bits, '0')
		}
		return true
	})
	return framesResponse{From: from, Count: len(bits), Bits: string(bits)}, nil
}

func (s *Server) slab(*fasthttp.RequestCtx) (any, error) {
	if s.m.OS() == nil {
		return nil, errNoLibOS
	}
	return s.m.OS().Slab().Stats(), nil
}

func (s *Server) syscalls(*fasthttp.RequestCtx) (any, error) {
	return s.m.Kernel().Syscalls().Stats(), nil
}

type objectResponse struct {
	Addr uint32 `json:"addr"`
	Size uint32 `json:"size"`
}

func (s *Server) alloc(ctx *fasthttp.RequestCtx) (any, error) {
	if s.m.OS() == nil {
		return nil, errNoLibOS
	}
	size, err := uintArg(ctx, "size")
	if err != nil {
		return nil, err
	}
	addr, err := s.m.OS().Malloc(size)
	if err != nil {
		return nil, err
	}
	return objectResponse{Addr: addr, Size: size}, nil
}

func (s *Server) free(ctx *fasthttp.RequestCtx) (any, error) {
	if s.m.OS() == nil {
		return nil, errNoLibOS
	}
	addr, err := uintArg(ctx, "addr")
	if err != nil {
		return nil, err
	}
	size, err := uintArg(ctx, "size")
	if err != nil {
		return nil, err
	}
	if err := s.m.OS().Free(addr, size); err != nil {
		return nil, err
	}
	return objectResponse{Addr: addr, Size: size}, nil
}

func (s *Server) allocpg(ctx *fasthttp.RequestCtx) (any, error) {
	count, err := uintArg(ctx, "count")
	if err != nil {
		return nil, err
	}
	return s.sys.AllocPg(count)
}

func (s *Server) freepg(ctx *fasthttp.RequestCtx) (any, error) {
	addr, err := uintArg(ctx, "addr")
	if err != nil {
		return nil, err
	}
	count, err := uintArg(ctx, "count")
	if err != nil {
		return nil, err
	}
	unit := exo.AllocUnit{Addr: addr, Count: count}
	if err := s.sys.FreePg(unit); err != nil {
		return nil, err
	}
	return unit, nil
}
