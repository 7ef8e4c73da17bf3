package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tupilates/domain"
	"tupilates/utils"
)

// answerKey carries the reply to the question currently asked.
const answerKey = "answer"

var prompts = map[domain.ConversationStep]string{
	domain.StepKind:        "¿Querés anotarte con un paquete (regular) o a una clase suelta (ocasional)?",
	domain.StepName:        "¿Cuál es tu nombre?",
	domain.StepSurname:     "¿Y tu apellido?",
	domain.StepPhone:       "¿A qué número de teléfono te contactamos?",
	domain.StepPackageSize: "¿De cuántas clases es el paquete? (4, 8 o 12)",
	domain.StepSlots:       "¿En qué turnos? Separalos con comas, por ejemplo: Lunes 18:00, Miércoles 18:00",
	domain.StepWeekday:     "¿Qué día querés venir?",
	domain.StepTime:        "¿A qué hora? (HH:MM)",
	domain.StepConfirm:     "¿Confirmás el registro? (si/no)",
}

type conversationUseCase struct {
	repo       domain.ConversationRepository
	allocation domain.AllocationUseCase
	ttl        time.Duration
}

func NewConversationUseCase(repo domain.ConversationRepository, allocation domain.AllocationUseCase, ttl time.Duration) domain.ConversationUseCase {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &conversationUseCase{repo: repo, allocation: allocation, ttl: ttl}
}

// nextStep returns the first question whose field is still missing.
func nextStep(fields map[string]string) domain.ConversationStep {
	order := []domain.ConversationStep{domain.StepKind, domain.StepName, domain.StepSurname, domain.StepPhone}
	switch fields[string(domain.StepKind)] {
	case domain.CategoryRegular:
		order = append(order, domain.StepPackageSize, domain.StepSlots)
	case domain.CategoryOccasional:
		order = append(order, domain.StepWeekday, domain.StepTime)
	}
	order = append(order, domain.StepConfirm)

	for _, step := range order {
		if fields[string(step)] == "" {
			return step
		}
	}
	return domain.StepDone
}

// checkAnswer normalizes the value given for step.
func checkAnswer(step domain.ConversationStep, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("la respuesta no puede estar vacía")
	}

	switch step {
	case domain.StepKind:
		v := utils.Normalize(value)
		switch {
		case strings.HasPrefix(v, "reg"), strings.Contains(v, "paquete"):
			return domain.CategoryRegular, nil
		case strings.HasPrefix(v, "oca"), strings.Contains(v, "suelta"):
			return domain.CategoryOccasional, nil
		}
		return "", fmt.Errorf("respondé 'regular' u 'ocasional'")
	case domain.StepPackageSize:
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return "", fmt.Errorf("indicá la cantidad de clases con un número")
		}
		return strconv.Itoa(n), nil
	case domain.StepSlots:
		var labels []string
		for _, raw := range strings.Split(value, ",") {
			wd, hhmm, err := utils.ParseSlotLabel(raw)
			if err != nil {
				return "", err
			}
			labels = append(labels, utils.SlotLabel(wd, hhmm))
		}
		return strings.Join(labels, ","), nil
	case domain.StepWeekday:
		wd, ok := utils.ParseWeekday(value)
		if !ok {
			return "", fmt.Errorf("no reconozco el día %q", value)
		}
		return utils.GetDayName(wd), nil
	case domain.StepTime:
		return utils.NormalizeTime(value)
	case domain.StepConfirm:
		switch utils.Normalize(value) {
		case "si", "s", "confirmo":
			return "si", nil
		case "no", "n", "cancelar":
			return "no", nil
		}
		return "", fmt.Errorf("respondé 'si' o 'no'")
	}
	return value, nil
}

func (s *conversationUseCase) Step(ctx context.Context, session string, input map[string]string) (*domain.ConversationReply, error) {
	fields, err := s.repo.LoadConversation(ctx, session)
	if err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]string{}
	}

	reply := &domain.ConversationReply{Session: session}

	// explicit fields first, then the free answer for the pending question
	for key, value := range input {
		if key == answerKey || strings.TrimSpace(value) == "" {
			continue
		}
		step := domain.ConversationStep(key)
		if _, known := prompts[step]; !known {
			continue
		}
		v, err := checkAnswer(step, value)
		if err != nil {
			reply.Errors = append(reply.Errors, err.Error())
			continue
		}
		fields[key] = v
	}
	if answer, ok := input[answerKey]; ok {
		step := nextStep(fields)
		if step != domain.StepDone {
			v, err := checkAnswer(step, answer)
			if err != nil {
				reply.Errors = append(reply.Errors, err.Error())
			} else {
				fields[string(step)] = v
			}
		}
	}

	step := nextStep(fields)
	if step == domain.StepDone {
		return s.finish(ctx, session, fields, reply)
	}

	if err := s.repo.SaveConversation(ctx, session, fields, s.ttl); err != nil {
		return nil, err
	}
	reply.Step = step
	reply.Prompt = prompts[step]
	if step == domain.StepConfirm {
		reply.Prompt = summary(fields) + "\n" + reply.Prompt
	}
	reply.Fields = fields
	return reply, nil
}

func summary(fields map[string]string) string {
	who := utils.DisplayName(fields[string(domain.StepName)], fields[string(domain.StepSurname)])
	if fields[string(domain.StepKind)] == domain.CategoryRegular {
		return fmt.Sprintf("%s, paquete de %s clases en %s.", who,
			fields[string(domain.StepPackageSize)], strings.ReplaceAll(fields[string(domain.StepSlots)], ",", ", "))
	}
	return fmt.Sprintf("%s, clase del %s a las %s.", who, fields[string(domain.StepWeekday)], fields[string(domain.StepTime)])
}

// finish runs the registration once everything is answered and ends the session.
func (s *conversationUseCase) finish(ctx context.Context, session string, fields map[string]string, reply *domain.ConversationReply) (*domain.ConversationReply, error) {
	if err := s.repo.DeleteConversation(ctx, session); err != nil {
		return nil, err
	}
	reply.Step = domain.StepDone
	reply.Done = true
	reply.Fields = fields

	if fields[string(domain.StepConfirm)] != "si" {
		reply.Prompt = "Registro cancelado."
		return reply, nil
	}

	data := domain.StudentData{
		Name:    fields[string(domain.StepName)],
		Surname: fields[string(domain.StepSurname)],
		Phone:   fields[string(domain.StepPhone)],
	}
	channel := "chat"
	data.Channel = &channel

	var (
		result interface{}
		err    error
	)
	if fields[string(domain.StepKind)] == domain.CategoryRegular {
		size, _ := strconv.Atoi(fields[string(domain.StepPackageSize)])
		result, err = s.allocation.RegisterRegular(ctx, domain.RegularRegistration{
			StudentData: data,
			PackageSize: size,
			Slots:       strings.Split(fields[string(domain.StepSlots)], ","),
		})
	} else {
		wd, _ := utils.ParseWeekday(fields[string(domain.StepWeekday)])
		result, err = s.allocation.RegisterOccasional(ctx, domain.OccasionalRegistration{
			StudentData: data,
			Weekday:     &wd,
			Time:        fields[string(domain.StepTime)],
		})
	}

	if list, ok := domain.AsErrorList(err); ok {
		reply.Prompt = "No se pudo completar el registro."
		reply.Errors = append(reply.Errors, list.Messages()...)
		return reply, nil
	}
	if err != nil {
		return nil, err
	}
	reply.Prompt = "¡Listo! Registro completado."
	reply.Result = result
	return reply, nil
}
