package service

import (
	"context"
	"errors"
	"testing"

	"github.com/Dountche/esi-edt-backend/internal/dto"
	"github.com/Dountche/esi-edt-backend/internal/model"
)

func setupAssignmentService(t *testing.T) (AssignmentService, *fixture) {
	f := newFixture(t)
	return NewAssignmentService(f.repo, f.notifier(), f.logger), f
}

func TestAssignmentService_Create_NotifiesTeacher(t *testing.T) {
	svc, f := setupAssignmentService(t)

	resp, err := svc.Create(context.Background(), rupScope, &dto.CreateAssignmentRequest{
		TeacherID: teacher2, SubjectID: subjPhys, ClassID: classA, SemesterID: semID,
	})
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if resp.TeacherName != "Yao" || resp.SubjectName != "Physique" || resp.ClassName != "ING1-A" {
		t.Errorf("响应应包含名称: %+v", resp)
	}

	list := f.store.notificationsFor(teacher2)
	if len(list) != 1 || list[0].Type != model.NotificationAssignment {
		t.Fatalf("教师应收到一条分配通知，实际 %+v", list)
	}
	if list[0].RelatedID == nil || *list[0].RelatedID != resp.ID {
		t.Errorf("通知应关联分配 ID: %+v", list[0])
	}
}

func TestAssignmentService_Create_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		scope Scope
		req   dto.CreateAssignmentRequest
		want  error
	}{
		{"重复分配", adminScope, dto.CreateAssignmentRequest{TeacherID: teacher1, SubjectID: subjMath, ClassID: classA, SemesterID: semID}, ErrAssignmentExists},
		{"非教师", adminScope, dto.CreateAssignmentRequest{TeacherID: studentA1, SubjectID: subjMath, ClassID: classA, SemesterID: semID}, ErrAssignmentNotTeacher},
		{"课程属于其他班级", adminScope, dto.CreateAssignmentRequest{TeacherID: teacher2, SubjectID: subjPhys, ClassID: classB, SemesterID: semID}, ErrAssignmentSubjectScope},
		{"学期不存在", adminScope, dto.CreateAssignmentRequest{TeacherID: teacher2, SubjectID: subjMath, ClassID: classA, SemesterID: "missing"}, ErrSemesterNotFound},
		{"班级不存在", adminScope, dto.CreateAssignmentRequest{TeacherID: teacher2, SubjectID: subjMath, ClassID: "missing", SemesterID: semID}, ErrClassNotFound},
		{"非负责班级", rupScope, dto.CreateAssignmentRequest{TeacherID: teacher2, SubjectID: subjMath, ClassID: classB, SemesterID: semID}, ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := setupAssignmentService(t)
			req := tt.req
			if _, err := svc.Create(context.Background(), tt.scope, &req); !errors.Is(err, tt.want) {
				t.Errorf("期望 %v，实际: %v", tt.want, err)
			}
		})
	}
}

func TestAssignmentService_List_TeacherSeesOwn(t *testing.T) {
	svc, f := setupAssignmentService(t)
	f.store.assignments["assign-t2"] = &model.Assignment{
		AssignmentID: "assign-t2", TeacherID: teacher2, SubjectID: subjPhys, ClassID: classA, SemesterID: semID,
	}

	list, err := svc.List(context.Background(), Scope{UserID: teacher2, Role: model.RoleTeacher}, &dto.AssignmentListRequest{TeacherID: teacher1})
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	if len(list) != 1 || list[0].TeacherID != teacher2 {
		t.Errorf("教师只能看到自己的分配，实际 %+v", list)
	}

	all, _ := svc.List(context.Background(), adminScope, &dto.AssignmentListRequest{ClassID: classA})
	if len(all) != 2 {
		t.Errorf("期望 A 班 2 条分配，实际 %d", len(all))
	}
}

func TestAssignmentService_Delete(t *testing.T) {
	svc, f := setupAssignmentService(t)
	ctx := context.Background()

	if err := svc.Delete(ctx, rupScope, "assign-b"); !errors.Is(err, ErrForbidden) {
		t.Errorf("删除非负责班级分配期望 ErrForbidden，实际: %v", err)
	}
	if err := svc.Delete(ctx, rupScope, "assign-a"); err != nil {
		t.Fatalf("Delete 应成功: %v", err)
	}
	if _, ok := f.store.assignments["assign-a"]; ok {
		t.Error("分配应被删除")
	}
	if err := svc.Delete(ctx, adminScope, "assign-a"); !errors.Is(err, ErrAssignmentNotFound) {
		t.Errorf("期望 ErrAssignmentNotFound，实际: %v", err)
	}
}
