package opcmd

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"cloud.google.com/go/longrunning/autogen/longrunningpb"
	"github.com/spf13/cobra"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
	"sigs.k8s.io/yaml"
)

type printer struct {
	w      io.Writer
	notes  io.Writer
	format string
}

func newPrinter(w io.Writer, format string) printer {
	return printer{w: w, format: format}
}

// cmdPrinter writes results to stdout and notes to stderr.
func cmdPrinter(cmd *cobra.Command, format string) printer {
	return newPrinter(cmd.OutOrStdout(), format).withNotes(cmd.ErrOrStderr())
}

// withNotes sends remarks about incomplete output, such as payloads of
// unknown types, to w.
func (p printer) withNotes(w io.Writer) printer {
	p.notes = w
	return p
}

func (p printer) operation(op *longrunningpb.Operation) error {
	if p.format == FormatName {
		_, err := fmt.Fprintln(p.w, op.GetName())
		return err
	}
	return p.message(op)
}

func (p printer) operations(resp *longrunningpb.ListOperationsResponse) error {
	if p.format == FormatName {
		for _, op := range resp.GetOperations() {
			if _, err := fmt.Fprintln(p.w, op.GetName()); err != nil {
				return err
			}
		}
		return nil
	}
	return p.message(resp)
}

func (p printer) message(m proto.Message) error {
	resolver := &lenientResolver{Types: protoregistry.GlobalTypes}
	b, err := protojson.MarshalOptions{
		Multiline: true,
		Indent:    "  ",
		Resolver:  resolver,
	}.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}

	if p.format == FormatYAML {
		if b, err = yaml.JSONToYAML(b); err != nil {
			return fmt.Errorf("encode output: %w", err)
		}
		_, err = p.w.Write(b)
	} else {
		_, err = fmt.Fprintln(p.w, string(b))
	}
	if err != nil {
		return err
	}

	if p.notes != nil {
		for _, url := range resolver.unresolved {
			fmt.Fprintf(p.notes, "Payload of type [%s] is not shown: the type is unknown to opwait.\n", url)
		}
	}
	return nil
}

// lenientResolver resolves Any payloads of types this binary does not link
// to empty placeholder messages. Output keeps their type URL but drops the
// payload fields; unresolved lists the affected URLs once each.
type lenientResolver struct {
	*protoregistry.Types
	unresolved []string
}

func (r *lenientResolver) FindMessageByURL(url string) (protoreflect.MessageType, error) {
	mt, err := r.Types.FindMessageByURL(url)
	if err == nil {
		return mt, nil
	}
	placeholder, perr := placeholderType(url)
	if perr != nil {
		return nil, err
	}
	if !slices.Contains(r.unresolved, url) {
		r.unresolved = append(r.unresolved, url)
	}
	return placeholder, nil
}

func placeholderType(url string) (protoreflect.MessageType, error) {
	fullName := url
	if i := strings.LastIndexByte(url, '/'); i >= 0 {
		fullName = url[i+1:]
	}
	if !protoreflect.FullName(fullName).IsValid() {
		return nil, fmt.Errorf("invalid message name %q", fullName)
	}

	pkg, name := "", fullName
	if i := strings.LastIndexByte(fullName, '.'); i >= 0 {
		pkg, name = fullName[:i], fullName[i+1:]
	}

	fd, err := protodesc.NewFile(&descriptorpb.FileDescriptorProto{
		Name:        proto.String("opwait/unresolved/" + fullName + ".proto"),
		Package:     proto.String(pkg),
		Syntax:      proto.String("proto3"),
		MessageType: []*descriptorpb.DescriptorProto{{Name: proto.String(name)}},
	}, nil)
	if err != nil {
		return nil, err
	}

	return dynamicpb.NewMessageType(fd.Messages().Get(0)), nil
}
