package asset

import (
	"errors"
	"testing"
)

type recordingHandler struct {
	loaded, committed, freed []Handle
	loadErr                  error
}

func (r *recordingHandler) Load(h Handle, data []byte) error {
	r.loaded = append(r.loaded, h)
	return r.loadErr
}
func (r *recordingHandler) Commit(h Handle) error {
	r.committed = append(r.committed, h)
	return nil
}
func (r *recordingHandler) Free(h Handle) error {
	r.freed = append(r.freed, h)
	return nil
}

func TestQueueRoutesByKind(t *testing.T) {
	shaders := &recordingHandler{}
	images := &recordingHandler{}
	q := NewQueue(WithHandler(KindShader, shaders), WithHandler(KindImage, images))

	q.Load(Handle{Kind: KindShader, ID: 1}, []byte("wgsl"))
	q.Load(Handle{Kind: KindImage, ID: 2}, []byte("png"))

	if len(shaders.loaded) != 1 || shaders.loaded[0].ID != 1 {
		t.Fatalf("shader handler loaded = %v, want one handle with ID 1", shaders.loaded)
	}
	if len(images.loaded) != 1 || images.loaded[0].ID != 2 {
		t.Fatalf("image handler loaded = %v, want one handle with ID 2", images.loaded)
	}
}

func TestQueueMissingHandlerReportsError(t *testing.T) {
	q := NewQueue()
	q.Load(Handle{Kind: KindMaterial, ID: 1}, nil)

	token := <-q.Results()
	if token.Err == nil {
		t.Fatalf("expected an error for an unregistered kind, got nil")
	}
}

func TestQueueLoadFailureIsReportedNotFatal(t *testing.T) {
	wantErr := errors.New("decode failed")
	h := &recordingHandler{loadErr: wantErr}
	q := NewQueue(WithHandler(KindImage, h))

	q.Load(Handle{Kind: KindImage, ID: 5}, nil)
	token := <-q.Results()

	if !errors.Is(token.Err, wantErr) {
		t.Fatalf("token.Err = %v, want %v", token.Err, wantErr)
	}
	if token.Handle.ID != 5 {
		t.Fatalf("token.Handle.ID = %d, want 5", token.Handle.ID)
	}
}

func TestQueueCommitAndFreeRouteToHandler(t *testing.T) {
	h := &recordingHandler{}
	q := NewQueue(WithHandler(KindBuffer, h))
	handle := Handle{Kind: KindBuffer, ID: 7}

	if err := q.Commit(handle); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if err := q.Free(handle); err != nil {
		t.Fatalf("Free() error = %v", err)
	}

	if len(h.committed) != 1 || h.committed[0] != handle {
		t.Fatalf("committed = %v, want [%v]", h.committed, handle)
	}
	if len(h.freed) != 1 || h.freed[0] != handle {
		t.Fatalf("freed = %v, want [%v]", h.freed, handle)
	}
}
