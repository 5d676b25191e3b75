package rest

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/sealvault/internal/common"
	pb "github.com/dmitrijs2005/sealvault/internal/proto"
	"github.com/dmitrijs2005/sealvault/internal/server/services"
	"github.com/gin-gonic/gin"
)

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

var kindStatus = map[string]int{
	common.KindValidation:      http.StatusBadRequest,
	common.KindCrypto:          http.StatusInternalServerError,
	common.KindIntegrity:       http.StatusUnprocessableEntity,
	common.KindPolicy:          http.StatusConflict,
	common.KindNotFound:        http.StatusNotFound,
	common.KindUnauthenticated: http.StatusUnauthorized,
}

// fail writes err as {"error","kind"} with the status of its fault kind.
func fail(c *gin.Context, err error) {
	kind := common.Kind(err)
	code, ok := kindStatus[kind]
	msg := err.Error()
	if !ok {
		code, msg = http.StatusInternalServerError, "internal error"
	}
	c.Set("fault_kind", kind)
	c.AbortWithStatusJSON(code, errorBody{Error: msg, Kind: kind})
}

// bind decodes the JSON body; decode failures are validation faults.
func bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fail(c, fmt.Errorf("%w: request body exceeds %d bytes", common.ErrValidation, tooLarge.Limit))
			return false
		}
		fail(c, fmt.Errorf("%w: %v", common.ErrValidation, err))
		return false
	}
	return true
}

type submitRequest struct {
	Message string `json:"message"`
}

type submitResponse struct {
	RecordID  string    `json:"record_id"`
	Signature []byte    `json:"signature"`
	CreatedAt time.Time `json:"created_at"`
}

type recordView struct {
	ID         string    `json:"id"`
	Ciphertext []byte    `json:"ciphertext"`
	Nonce      []byte    `json:"nonce"`
	Signature  []byte    `json:"signature"`
	CreatedAt  time.Time `json:"created_at"`
}

// candidateRequest takes the candidate as text: base64 when it decodes,
// otherwise its raw bytes.
type candidateRequest struct {
	RecordID           string `json:"record_id"`
	CandidateSignature string `json:"candidate_signature"`
}

type revealRequest struct {
	RecordID string `json:"record_id"`
}

func (s *Server) openSession(c *gin.Context) {
	token, err := s.lifecycle.OpenSession(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (s *Server) submit(c *gin.Context) {
	var req submitRequest
	if !bind(c, &req) {
		return
	}

	res, err := s.lifecycle.Submit(c.Request.Context(), []byte(req.Message))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, submitResponse{RecordID: res.RecordID, Signature: res.Signature, CreatedAt: res.CreatedAt})
}

func (s *Server) listRecords(c *gin.Context) {
	list, err := s.lifecycle.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}

	out := make([]recordView, 0, len(list))
	for _, r := range list {
		out = append(out, recordView{
			ID:         r.ID,
			Ciphertext: r.Ciphertext,
			Nonce:      r.Nonce,
			Signature:  r.Signature,
			CreatedAt:  r.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"records": out})
}

func (s *Server) verify(c *gin.Context) {
	var req candidateRequest
	if !bind(c, &req) {
		return
	}

	outcome, err := s.lifecycle.ReVerify(c.Request.Context(), c.GetString(sessionIDKey), req.RecordID, pb.DecodeCandidate(req.CandidateSignature))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"verified": outcome == services.Valid})
}

func (s *Server) setCandidate(c *gin.Context) {
	var req candidateRequest
	if !bind(c, &req) {
		return
	}

	st, err := s.lifecycle.SetCandidate(c.Request.Context(), c.GetString(sessionIDKey), req.RecordID, pb.DecodeCandidate(req.CandidateSignature))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": st.Name()})
}

func (s *Server) reveal(c *gin.Context) {
	var req revealRequest
	if !bind(c, &req) {
		return
	}

	pt, err := s.lifecycle.Reveal(c.Request.Context(), c.GetString(sessionIDKey), req.RecordID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plaintext": pt})
}

func (s *Server) publicKey(c *gin.Context) {
	pk := s.lifecycle.PublicKey()
	c.JSON(http.StatusOK, gin.H{"scheme": pk.Scheme, "public_key_pem": pk.PublicKeyPEM})
}
