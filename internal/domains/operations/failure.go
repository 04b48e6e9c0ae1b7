package opdomain

import (
	"fmt"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	rpcstatus "google.golang.org/genproto/googleapis/rpc/status"
	"google.golang.org/grpc/codes"
	"google.golang.org/protobuf/types/known/anypb"
)

// NewOperationFailedError converts the error carried by a finished
// operation. Known violation lists are flattened into Details.
func NewOperationFailedError(name OperationName, st *rpcstatus.Status) *OperationFailedError {
	if st == nil {
		return &OperationFailedError{
			Name:    name,
			Code:    codes.Unknown,
			Message: "operation finished with an unspecified error",
		}
	}

	return &OperationFailedError{
		Name:    name,
		Code:    codes.Code(st.GetCode()),
		Message: st.GetMessage(),
		Details: describeDetails(st.GetDetails()),
	}
}

func describeDetails(details []*anypb.Any) []string {
	var out []string
	for _, d := range details {
		msg, err := d.UnmarshalNew()
		if err != nil {
			out = append(out, fmt.Sprintf("unknown detail %s", d.GetTypeUrl()))
			continue
		}

		switch v := msg.(type) {
		case *errdetails.QuotaFailure:
			for _, q := range v.GetViolations() {
				out = append(out, fmt.Sprintf("quota violation: %s: %s", q.GetSubject(), q.GetDescription()))
			}
		case *errdetails.PreconditionFailure:
			for _, p := range v.GetViolations() {
				out = append(out, fmt.Sprintf("precondition violation: %s %s: %s", p.GetType(), p.GetSubject(), p.GetDescription()))
			}
		case *errdetails.BadRequest:
			for _, f := range v.GetFieldViolations() {
				out = append(out, fmt.Sprintf("field violation: %s: %s", f.GetField(), f.GetDescription()))
			}
		case *errdetails.ErrorInfo:
			out = append(out, fmt.Sprintf("error info: %s (%s)", v.GetReason(), v.GetDomain()))
		case *errdetails.ResourceInfo:
			out = append(out, fmt.Sprintf("resource %s %s: %s", v.GetResourceType(), v.GetResourceName(), v.GetDescription()))
		case *errdetails.LocalizedMessage:
			out = append(out, v.GetMessage())
		case *errdetails.Help:
			for _, l := range v.GetLinks() {
				out = append(out, fmt.Sprintf("help: %s %s", l.GetDescription(), l.GetUrl()))
			}
		default:
			out = append(out, fmt.Sprintf("detail %s", d.GetTypeUrl()))
		}
	}
	return out
}
