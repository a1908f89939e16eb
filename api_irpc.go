package fractal

import (
	"context"
	"fmt"

	"github.com/marben/irpc/irpcgen"
)

// irpc endpoints tell services apart by the first bytes of these ids.
var (
	_SubmitterIrpcId = []byte{
		0x88, 0xb3, 0x0d, 0x65, 0x8c, 0x2d, 0x16, 0x8b,
		0x55, 0xb2, 0x7f, 0x52, 0x79, 0x89, 0x6c, 0x65,
		0x9d, 0xec, 0x31, 0x38, 0xbd, 0x8b, 0x36, 0x26,
		0x45, 0x29, 0x03, 0x27, 0xcf, 0x89, 0xaf, 0xa9,
	}
	_SnapshotSinkIrpcId = []byte{
		0x81, 0x9e, 0x21, 0x18, 0xdc, 0xb9, 0x59, 0x9a,
		0x09, 0x63, 0x27, 0x7e, 0xb2, 0xac, 0xb4, 0x58,
		0x18, 0x3e, 0x09, 0x89, 0x27, 0x85, 0x8e, 0x63,
		0xde, 0x8f, 0xe0, 0x2e, 0x4e, 0xcf, 0x62, 0x2e,
	}
)

const submitFuncId irpcgen.FuncId = 0

const (
	deliverFuncId irpcgen.FuncId = iota
	failFuncId
)

// SubmitterIrpcService serves a Submitter to the other side of an irpc endpoint.
type SubmitterIrpcService struct {
	impl Submitter
}

func NewSubmitterIrpcService(impl Submitter) *SubmitterIrpcService {
	return &SubmitterIrpcService{impl: impl}
}

func (s *SubmitterIrpcService) Id() []byte {
	return _SubmitterIrpcId
}

func (s *SubmitterIrpcService) GetFuncCall(funcId irpcgen.FuncId) (irpcgen.ArgDeserializer, error) {
	switch funcId {
	case submitFuncId:
		return func(d *irpcgen.Decoder) (irpcgen.FuncExecutor, error) {
			var args submitReq
			if err := args.Deserialize(d); err != nil {
				return nil, err
			}
			return func(ctx context.Context) irpcgen.Serializable {
				var resp submitResp
				resp.id, resp.err = s.impl.Submit(args.req)
				return resp
			}, nil
		}, nil
	default:
		return nil, fmt.Errorf("function '%d' doesn't exist on service '%x'", funcId, s.Id())
	}
}

// SubmitterIrpcClient implements Submitter by calling the remote service.
type SubmitterIrpcClient struct {
	endpoint irpcgen.Endpoint
}

func NewSubmitterIrpcClient(endpoint irpcgen.Endpoint) (*SubmitterIrpcClient, error) {
	if err := endpoint.RegisterClient(_SubmitterIrpcId); err != nil {
		return nil, fmt.Errorf("register failed: %w", err)
	}
	return &SubmitterIrpcClient{endpoint: endpoint}, nil
}

func (c *SubmitterIrpcClient) Submit(req Request) (uint64, error) {
	var resp submitResp
	if err := c.endpoint.CallRemoteFunc(context.Background(), _SubmitterIrpcId, submitFuncId, submitReq{req: req}, &resp); err != nil {
		return 0, err
	}
	return resp.id, resp.err
}

// SnapshotSinkIrpcService serves a SnapshotSink to the other side of an irpc endpoint.
type SnapshotSinkIrpcService struct {
	impl SnapshotSink
}

func NewSnapshotSinkIrpcService(impl SnapshotSink) *SnapshotSinkIrpcService {
	return &SnapshotSinkIrpcService{impl: impl}
}

func (s *SnapshotSinkIrpcService) Id() []byte {
	return _SnapshotSinkIrpcId
}

func (s *SnapshotSinkIrpcService) GetFuncCall(funcId irpcgen.FuncId) (irpcgen.ArgDeserializer, error) {
	switch funcId {
	case deliverFuncId:
		return func(d *irpcgen.Decoder) (irpcgen.FuncExecutor, error) {
			var args deliverReq
			if err := args.Deserialize(d); err != nil {
				return nil, err
			}
			return func(ctx context.Context) irpcgen.Serializable {
				return errResp{err: s.impl.Deliver(ctx, args.snap)}
			}, nil
		}, nil
	case failFuncId:
		return func(d *irpcgen.Decoder) (irpcgen.FuncExecutor, error) {
			var args failReq
			if err := args.Deserialize(d); err != nil {
				return nil, err
			}
			return func(ctx context.Context) irpcgen.Serializable {
				return errResp{err: s.impl.Fail(ctx, args.id, args.reason)}
			}, nil
		}, nil
	default:
		return nil, fmt.Errorf("function '%d' doesn't exist on service '%x'", funcId, s.Id())
	}
}

// SnapshotSinkIrpcClient implements SnapshotSink by calling the remote service.
type SnapshotSinkIrpcClient struct {
	endpoint irpcgen.Endpoint
}

func NewSnapshotSinkIrpcClient(endpoint irpcgen.Endpoint) (*SnapshotSinkIrpcClient, error) {
	if err := endpoint.RegisterClient(_SnapshotSinkIrpcId); err != nil {
		return nil, fmt.Errorf("register failed: %w", err)
	}
	return &SnapshotSinkIrpcClient{endpoint: endpoint}, nil
}

func (c *SnapshotSinkIrpcClient) Deliver(ctx context.Context, s Snapshot) error {
	var resp errResp
	if err := c.endpoint.CallRemoteFunc(ctx, _SnapshotSinkIrpcId, deliverFuncId, deliverReq{snap: s}, &resp); err != nil {
		return err
	}
	return resp.err
}

func (c *SnapshotSinkIrpcClient) Fail(ctx context.Context, id uint64, reason string) error {
	var resp errResp
	if err := c.endpoint.CallRemoteFunc(ctx, _SnapshotSinkIrpcId, failFuncId, failReq{id: id, reason: reason}, &resp); err != nil {
		return err
	}
	return resp.err
}

type submitReq struct {
	req Request
}

func (s submitReq) Serialize(e *irpcgen.Encoder) error {
	if err := encRequest(e, s.req); err != nil {
		return fmt.Errorf("serialize \"req\" of type Request: %w", err)
	}
	return nil
}

func (s *submitReq) Deserialize(d *irpcgen.Decoder) error {
	if err := decRequest(d, &s.req); err != nil {
		return fmt.Errorf("deserialize req of type Request: %w", err)
	}
	return nil
}

type submitResp struct {
	id  uint64
	err error
}

func (s submitResp) Serialize(e *irpcgen.Encoder) error {
	if err := irpcgen.EncUint64(e, s.id); err != nil {
		return fmt.Errorf("serialize type uint64: %w", err)
	}
	return encError(e, s.err)
}

func (s *submitResp) Deserialize(d *irpcgen.Decoder) error {
	if err := irpcgen.DecUint64(d, &s.id); err != nil {
		return fmt.Errorf("deserialize type uint64: %w", err)
	}
	return decError(d, &s.err)
}

type deliverReq struct {
	snap Snapshot
}

func (s deliverReq) Serialize(e *irpcgen.Encoder) error {
	if err := encSnapshot(e, s.snap); err != nil {
		return fmt.Errorf("serialize \"snap\" of type Snapshot: %w", err)
	}
	return nil
}

func (s *deliverReq) Deserialize(d *irpcgen.Decoder) error {
	if err := decSnapshot(d, &s.snap); err != nil {
		return fmt.Errorf("deserialize snap of type Snapshot: %w", err)
	}
	return s.snap.Validate()
}

type failReq struct {
	id     uint64
	reason string
}

func (s failReq) Serialize(e *irpcgen.Encoder) error {
	if err := irpcgen.EncUint64(e, s.id); err != nil {
		return fmt.Errorf("serialize \"id\" of type uint64: %w", err)
	}
	if err := irpcgen.EncString(e, s.reason); err != nil {
		return fmt.Errorf("serialize \"reason\" of type string: %w", err)
	}
	return nil
}

func (s *failReq) Deserialize(d *irpcgen.Decoder) error {
	if err := irpcgen.DecUint64(d, &s.id); err != nil {
		return fmt.Errorf("deserialize id of type uint64: %w", err)
	}
	if err := irpcgen.DecString(d, &s.reason); err != nil {
		return fmt.Errorf("deserialize reason of type string: %w", err)
	}
	return nil
}

type errResp struct {
	err error
}

func (s errResp) Serialize(e *irpcgen.Encoder) error    { return encError(e, s.err) }
func (s *errResp) Deserialize(d *irpcgen.Decoder) error { return decError(d, &s.err) }

// remoteError is an error returned by the other side; only its text survives.
type remoteError struct {
	msg string
}

func (e remoteError) Error() string { return e.msg }

func encError(e *irpcgen.Encoder, v error) error {
	isNil := v == nil
	if err := irpcgen.EncIsNil(e, isNil); err != nil {
		return fmt.Errorf("serialize isNil == %t: %w", isNil, err)
	}
	if isNil {
		return nil
	}
	if err := irpcgen.EncString(e, v.Error()); err != nil {
		return fmt.Errorf("serialize \"v.Error()\" of type string: %w", err)
	}
	return nil
}

func decError(d *irpcgen.Decoder, v *error) error {
	var isNil bool
	if err := irpcgen.DecIsNil(d, &isNil); err != nil {
		return fmt.Errorf("deserialize isNil: %w", err)
	}
	if isNil {
		*v = nil
		return nil
	}
	var re remoteError
	if err := irpcgen.DecString(d, &re.msg); err != nil {
		return fmt.Errorf("deserialize error string: %w", err)
	}
	*v = re
	return nil
}

func encRequest(e *irpcgen.Encoder, r Request) error {
	if err := irpcgen.EncUint64(e, r.ID); err != nil {
		return fmt.Errorf("serialize r.ID of type uint64: %w", err)
	}
	if err := encViewport(e, r.Viewport); err != nil {
		return fmt.Errorf("serialize r.Viewport of type Viewport: %w", err)
	}
	if err := encSelector(e, r.Selector); err != nil {
		return fmt.Errorf("serialize r.Selector of type Selector: %w", err)
	}
	if err := irpcgen.EncInt(e, r.MaxIterations); err != nil {
		return fmt.Errorf("serialize r.MaxIterations of type int: %w", err)
	}
	return nil
}

func decRequest(d *irpcgen.Decoder, r *Request) error {
	if err := irpcgen.DecUint64(d, &r.ID); err != nil {
		return fmt.Errorf("deserialize r.ID of type uint64: %w", err)
	}
	if err := decViewport(d, &r.Viewport); err != nil {
		return fmt.Errorf("deserialize r.Viewport of type Viewport: %w", err)
	}
	if err := decSelector(d, &r.Selector); err != nil {
		return fmt.Errorf("deserialize r.Selector of type Selector: %w", err)
	}
	if err := irpcgen.DecInt(d, &r.MaxIterations); err != nil {
		return fmt.Errorf("deserialize r.MaxIterations of type int: %w", err)
	}
	return nil
}

func encViewport(e *irpcgen.Encoder, v Viewport) error {
	for _, f := range []float64{v.CenterX, v.CenterY, v.Scale} {
		if err := irpcgen.EncFloat64(e, f); err != nil {
			return err
		}
	}
	if err := irpcgen.EncInt(e, v.PixelWidth); err != nil {
		return err
	}
	return irpcgen.EncInt(e, v.PixelHeight)
}

func decViewport(d *irpcgen.Decoder, v *Viewport) error {
	for _, f := range []*float64{&v.CenterX, &v.CenterY, &v.Scale} {
		if err := irpcgen.DecFloat64(d, f); err != nil {
			return err
		}
	}
	if err := irpcgen.DecInt(d, &v.PixelWidth); err != nil {
		return err
	}
	return irpcgen.DecInt(d, &v.PixelHeight)
}

func encSelector(e *irpcgen.Encoder, s Selector) error {
	if err := irpcgen.EncUint8(e, s.Kind); err != nil {
		return err
	}
	if err := irpcgen.EncFloat64(e, s.Julia.Cr); err != nil {
		return err
	}
	return irpcgen.EncFloat64(e, s.Julia.Ci)
}

func decSelector(d *irpcgen.Decoder, s *Selector) error {
	if err := irpcgen.DecUint8(d, &s.Kind); err != nil {
		return err
	}
	if err := irpcgen.DecFloat64(d, &s.Julia.Cr); err != nil {
		return err
	}
	return irpcgen.DecFloat64(d, &s.Julia.Ci)
}

func encSnapshot(e *irpcgen.Encoder, s Snapshot) error {
	if err := irpcgen.EncUint64(e, s.ID); err != nil {
		return fmt.Errorf("serialize s.ID of type uint64: %w", err)
	}
	for _, n := range []int{s.PixelWidth, s.PixelHeight, s.Pass, s.Passes} {
		if err := irpcgen.EncInt(e, n); err != nil {
			return err
		}
	}
	if err := irpcgen.EncBool(e, s.Final); err != nil {
		return fmt.Errorf("serialize s.Final of type bool: %w", err)
	}
	if err := irpcgen.EncByteSlice(e, s.Pix); err != nil {
		return fmt.Errorf("serialize s.Pix of type []byte: %w", err)
	}
	return nil
}

func decSnapshot(d *irpcgen.Decoder, s *Snapshot) error {
	if err := irpcgen.DecUint64(d, &s.ID); err != nil {
		return fmt.Errorf("deserialize s.ID of type uint64: %w", err)
	}
	for _, n := range []*int{&s.PixelWidth, &s.PixelHeight, &s.Pass, &s.Passes} {
		if err := irpcgen.DecInt(d, n); err != nil {
			return err
		}
	}
	if err := irpcgen.DecBool(d, &s.Final); err != nil {
		return fmt.Errorf("deserialize s.Final of type bool: %w", err)
	}
	if err := irpcgen.DecByteSlice(d, &s.Pix); err != nil {
		return fmt.Errorf("deserialize s.Pix of type []byte: %w", err)
	}
	return nil
}
