// Parseo de las respuestas de WcfDianCustomerServices.

package soap

import (
	"fmt"

	"github.com/beevik/etree"

	domaindian "github.com/tu-usuario/dian-fe/internal/domain/dian"
)

// UploadResponse es la respuesta de SendBillAsync / SendTestSetAsync: la DIAN
// encola el ZIP y devuelve un ZipKey (track id) para consultar el resultado.
type UploadResponse struct {
	ZipKey        string
	ErrorMessages []string
	Raw           []byte
}

// StatusResponse es la respuesta de GetStatus / GetStatusZip / SendBillSync.
// IsValid nil significa que el documento sigue en proceso: la DIAN aún no
// emite veredicto y el llamador debe volver a consultar.
type StatusResponse struct {
	IsValid           *bool
	StatusCode        string
	StatusDescription string
	StatusMessage     string
	XMLBase64         string // AttachedDocument de respuesta (GetStatusZip), puede ser vacío
	ErrorMessages     []string
	Raw               []byte
}

// Pending indica que la DIAN todavía no decide sobre el documento.
func (r *StatusResponse) Pending() bool { return r.IsValid == nil }

// Accepted indica veredicto positivo.
func (r *StatusResponse) Accepted() bool { return r.IsValid != nil && *r.IsValid }

// Rejected indica veredicto negativo; RejectionError entrega los detalles.
func (r *StatusResponse) Rejected() bool { return r.IsValid != nil && !*r.IsValid }

// RejectionError construye el error de negocio con el estado crudo de la DIAN.
// Devuelve nil si el documento no fue rechazado.
func (r *StatusResponse) RejectionError() error {
	if !r.Rejected() {
		return nil
	}
	return &domaindian.DianError{
		StatusCode:        r.StatusCode,
		StatusDescription: r.StatusDescription,
		Messages:          r.ErrorMessages,
	}
}

func parseUploadResponse(raw []byte) (*UploadResponse, error) {
	root, err := parseEnvelope(raw)
	if err != nil {
		return nil, err
	}
	resp := &UploadResponse{Raw: raw}
	if v, ok := findResponseText(root, "ZipKey"); ok {
		resp.ZipKey = v
	}
	resp.ErrorMessages = collectErrorMessages(root, "ErrorMessageList")
	return resp, nil
}

func parseStatusResponse(raw []byte) (*StatusResponse, error) {
	root, err := parseEnvelope(raw)
	if err != nil {
		return nil, err
	}
	resp := &StatusResponse{Raw: raw}
	if v, ok := findResponseText(root, "IsValid"); ok {
		valid := v == "true"
		resp.IsValid = &valid
	}
	if v, ok := findResponseText(root, "StatusCode"); ok {
		resp.StatusCode = v
	}
	if v, ok := findResponseText(root, "StatusDescription"); ok {
		resp.StatusDescription = v
	}
	if v, ok := findResponseText(root, "StatusMessage"); ok {
		resp.StatusMessage = v
	}
	if v, ok := findResponseText(root, "XmlBase64Bytes"); ok {
		resp.XMLBase64 = v
	}
	resp.ErrorMessages = collectErrorMessages(root, "ErrorMessage")
	return resp, nil
}

func parseEnvelope(raw []byte) (*etree.Element, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, fmt.Errorf("%w: respuesta SOAP no parseable: %v", domaindian.ErrNetwork, err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("%w: respuesta SOAP vacía", domaindian.ErrNetwork)
	}
	// SOAP Fault: fallo de protocolo (autenticación, contrato, etc.).
	if fault := root.FindElement(".//Fault"); fault != nil {
		reason := ""
		if txt := fault.FindElement(".//Text"); txt != nil {
			reason = txt.Text()
		} else if fs := fault.FindElement(".//faultstring"); fs != nil {
			reason = fs.Text()
		}
		return nil, fmt.Errorf("%w: SOAP Fault: %s", domaindian.ErrNetwork, reason)
	}
	return root, nil
}

// findResponseText busca el primer elemento con ese nombre local cuyo
// namespace sea uno de los contratos de respuesta conocidos.
func findResponseText(root *etree.Element, local string) (string, bool) {
	var found *etree.Element
	walk(root, func(el *etree.Element) bool {
		if el.Tag == local && responseNamespaces[resolveNamespace(el)] {
			found = el
			return false
		}
		return true
	})
	if found == nil {
		return "", false
	}
	return found.Text(), true
}

// collectErrorMessages junta los textos de los hijos de la lista de errores
// (los items llegan como <b:string> o <d4p1:string> según el contrato).
func collectErrorMessages(root *etree.Element, listName string) []string {
	var list *etree.Element
	walk(root, func(el *etree.Element) bool {
		if el.Tag == listName && responseNamespaces[resolveNamespace(el)] {
			list = el
			return false
		}
		return true
	})
	if list == nil {
		return nil
	}
	var out []string
	for _, item := range list.ChildElements() {
		if txt := item.Text(); txt != "" {
			out = append(out, txt)
		}
	}
	return out
}

// walk recorre el árbol en orden de documento; visit devuelve false para cortar.
func walk(el *etree.Element, visit func(*etree.Element) bool) bool {
	if !visit(el) {
		return false
	}
	for _, child := range el.ChildElements() {
		if !walk(child, visit) {
			return false
		}
	}
	return true
}

// resolveNamespace resuelve el URI del prefijo del elemento buscando la
// declaración xmlns en el propio elemento o sus ancestros.
func resolveNamespace(el *etree.Element) string {
	prefix := el.Space
	for cur := el; cur != nil; cur = cur.Parent() {
		for _, attr := range cur.Attr {
			if prefix == "" {
				if attr.Space == "" && attr.Key == "xmlns" {
					return attr.Value
				}
			} else if attr.Space == "xmlns" && attr.Key == prefix {
				return attr.Value
			}
		}
	}
	return ""
}
