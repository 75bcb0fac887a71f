package sqlinline

const QInsertThemeGeneration = `--sql 4dd927e8-19b9-4231-a9fa-44efcb50285d
insert into theme_generations (
    id, user_id, invitation_id, prompt, model_id, status, credits_used, request, created_at, updated_at
)
values ($1::uuid, $2::uuid, $3::text, $4::text, $5::text, $6::text, $7::int, $8::jsonb, now(), now())
returning created_at, updated_at;
`

const QSelectThemeGeneration = `--sql 1a6c5dcc-ec91-4dd4-af9b-fcb141023fb0
select id::text, user_id::text, invitation_id, prompt, model_id, theme, status, fail_reason,
       credits_used, input_tokens, output_tokens, cost, duration_ms, request, created_at, updated_at
from theme_generations
where id = $1::uuid and user_id = $2::uuid;
`

const QListThemeGenerationsByUser = `--sql 25ce54a9-2dd0-4081-9a14-d6d2b4efbc5c
select id::text, user_id::text, invitation_id, prompt, model_id, theme, status, fail_reason,
       credits_used, input_tokens, output_tokens, cost, duration_ms, request, created_at, updated_at
from theme_generations
where user_id = $1::uuid
order by created_at desc
limit $2::int;
`

// QClaimThemeGenerationsByStatus bumps updated_at on the rows it returns so
// concurrent workers skip them until they go stale again.
const QClaimThemeGenerationsByStatus = `--sql 234e7da4-b195-4e2f-bd98-82b83ce87d11
with stale as (
    select id
    from theme_generations
    where status = $1::text
      and updated_at < $2::timestamptz
    order by created_at asc
    for update skip locked
    limit $3::int
)
update theme_generations t
set updated_at = now()
from stale
where t.id = stale.id
returning t.id::text, t.user_id::text, t.invitation_id, t.prompt, t.model_id, t.theme, t.status, t.fail_reason,
          t.credits_used, t.input_tokens, t.output_tokens, t.cost, t.duration_ms, t.request, t.created_at, t.updated_at;
`

const QTransitionThemeGeneration = `--sql 3c0f2bb1-91ea-4f00-a4eb-c708130a674c
update theme_generations
set status = $3::text,
    updated_at = now()
where id = $1::uuid and status = $2::text;
`

const QFinishThemeGeneration = `--sql 735e7b88-1bb0-42b1-8586-587188ba5189
update theme_generations
set status = $3::text,
    theme = $4::jsonb,
    fail_reason = $5::text,
    credits_used = $6::int,
    input_tokens = $7::int,
    output_tokens = $8::int,
    cost = $9::double precision,
    duration_ms = $10::bigint,
    updated_at = now()
where id = $1::uuid and status = $2::text;
`
