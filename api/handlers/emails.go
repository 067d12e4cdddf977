package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oneboxhq/onebox/dto"
	"github.com/oneboxhq/onebox/interfaces"
	"github.com/oneboxhq/onebox/internal/enum"
	"github.com/oneboxhq/onebox/internal/tracing"
	"github.com/oneboxhq/onebox/internal/utils"
)

const replyContextDocs = 3

// fallbackReply goes out when the model call fails; the endpoint never
// surfaces a generation failure to the caller.
const fallbackReply = "Thank you for your email. I will get back to you soon."

// SearchEmails returns stored emails matching the query string filters
func SearchEmails(emailRepository interfaces.EmailRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "SearchEmails", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)

		var params dto.EmailSearchParams
		if err := c.ShouldBindQuery(&params); err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		emails, err := emailRepository.Search(ctx, interfaces.EmailSearchFilters{
			Query:     params.Query,
			AccountID: params.AccountID,
			Folder:    params.Folder,
			Category:  params.Category,
			IsRead:    params.IsRead,
			DateFrom:  params.DateFrom,
			DateTo:    params.DateTo,
			Limit:     params.Limit,
		})
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"emails": emails, "count": len(emails)})
	}
}

// GetEmail returns one stored email with its attachment metadata
func GetEmail(emailRepository interfaces.EmailRepository, attachmentRepository interfaces.EmailAttachmentRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "GetEmail", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)

		id := c.Param("id")
		tracing.TagEntity(span, id)

		email, err := emailRepository.GetByID(ctx, id)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if email == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "email not found"})
			return
		}

		attachments, err := attachmentRepository.ListByEmail(ctx, id)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"email": email, "attachments": attachments})
	}
}

// SuggestReply drafts a reply for one stored email, grounded on the most
// similar reference documents
func SuggestReply(
	emailRepository interfaces.EmailRepository,
	vectorStore interfaces.VectorStore,
	aiService interfaces.AIService,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "SuggestReply", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)

		id := c.Param("id")
		tracing.TagEntity(span, id)

		email, err := emailRepository.GetByID(ctx, id)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if email == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "email not found"})
			return
		}

		body := email.BodyText
		if body == "" {
			body = email.BodyHTML
		}

		// Retrieval is fail-open: no matches just means an ungrounded reply.
		// Re:/Fwd: prefixes carry no signal and would dilute the query.
		matches, err := vectorStore.Search(ctx, utils.NormalizeEmailSubject(email.Subject)+"\n"+body, replyContextDocs)
		if err != nil {
			tracing.TraceErr(span, err)
			matches = nil
		}
		contextDocs := make([]string, 0, len(matches))
		for _, match := range matches {
			contextDocs = append(contextDocs, match.Document.Content)
		}

		reply, err := aiService.GenerateReply(ctx, dto.GenerateReplyRequest{
			Subject:     email.Subject,
			From:        email.FromAddress,
			Body:        body,
			ContextDocs: contextDocs,
		})
		if err != nil {
			tracing.TraceErr(span, err)
			reply = fallbackReply
		}

		c.JSON(http.StatusOK, dto.ReplyResponse{
			EmailID: email.ID,
			Reply:   reply,
		})
	}
}

// UpdateEmailCategory relabels one stored email. The new category must come
// from the closed category set; the classification source becomes manual.
func UpdateEmailCategory(emailRepository interfaces.EmailRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "UpdateEmailCategory", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)

		id := c.Param("id")
		tracing.TagEntity(span, id)

		var request dto.UpdateCategoryRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		category, ok := enum.ParseIntentCategory(request.Category)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown category: " + request.Category})
			return
		}

		email, err := emailRepository.GetByID(ctx, id)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if email == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "email not found"})
			return
		}

		if err := emailRepository.UpdateCategory(ctx, id, category, enum.ClassificationSourceManual); err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "category updated", "id": id, "category": category})
	}
}

// DownloadAttachment streams one stored attachment back to the caller
func DownloadAttachment(attachmentRepository interfaces.EmailAttachmentRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "DownloadAttachment", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)

		id := c.Param("id")
		tracing.TagEntity(span, id)

		attachment, err := attachmentRepository.GetByID(ctx, id)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if attachment == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "attachment not found"})
			return
		}

		data, err := attachmentRepository.DownloadAttachment(ctx, id)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		contentType := attachment.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		c.Header("Content-Disposition", `attachment; filename="`+attachment.Filename+`"`)
		c.Data(http.StatusOK, contentType, data)
	}
}
